package util

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileDigest is the hex md5 of a file's contents, logged next to model files
// so a resolution run can be matched to the training run that produced it.
func FileDigest(fileName string) (string, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return "", errors.Wrapf(err, "digest of %s", fileName)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", errors.Wrapf(err, "digest of %s", fileName)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// CreateFile opens a file for WriteFile.
var CreateFile = func(fileName string) (io.WriteCloser, error) {
	return os.Create(fileName)
}

// WriteFile creates fileName and fills it with write. The file is always
// closed; a close error is returned when write itself succeeded.
func WriteFile(fileName string, write func(io.Writer) error) (err error) {
	file, err := CreateFile(fileName)
	if err != nil {
		return errors.Wrapf(err, "creating %s", fileName)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "closing %s", fileName)
		}
	}()
	return write(file)
}
