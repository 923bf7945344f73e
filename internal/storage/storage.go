package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var ErrNotFound = errors.New("file not found")

// Exists checks if the given file or folder for a path exists
func Exists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dir and its parents when missing
func EnsureDir(dir string) error {
	if Exists(dir) {
		return nil
	}

	return os.MkdirAll(dir, 0755)
}

// ReadJSON decodes the json file at path into v
func ReadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// SetEnv sets key in the .env file at path, keeping the other variables.
// The file is created when missing and is only readable by its owner since
// it usually holds secrets.
func SetEnv(path, key, value string) error {
	env := map[string]string{}
	if Exists(path) {
		var err error
		env, err = godotenv.Read(path)
		if err != nil {
			return err
		}
	}

	env[key] = value

	if err := godotenv.Write(env, path); err != nil {
		return err
	}

	return os.Chmod(path, 0600)
}
