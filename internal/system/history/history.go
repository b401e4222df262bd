// Released under an MIT license. See LICENSE.

// Package history persists the interactive history list.
package history

import (
	"io"
	"os"
)

// Load opens the history file and hands it to read. The read callback
// is typically liner's ReadHistory.
func Load(read func(r io.Reader) (int, error)) error {
	f, err := file(os.Open)
	if err != nil {
		return err
	}

	_, err = read(f)
	if err != nil {
		return err
	}

	return f.Close()
}

// Save creates the history file and hands it to write. The write
// callback is typically liner's WriteHistory.
func Save(write func(w io.Writer) (int, error)) error {
	f, err := file(os.Create)
	if err != nil {
		return err
	}

	_, err = write(f)
	if err != nil {
		return err
	}

	return f.Close()
}
