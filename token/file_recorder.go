package token

import (
	"encoding/json"
	"io"
	"os"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/pkg/errors"
)

var _ Recorder = (*FileRecorder)(nil)

// FileRecorder appends records to a file as newline-delimited JSON. The file is opened
// and closed on every write so earlier records survive a later failure.
type FileRecorder struct {
	path string
	perm os.FileMode
}

func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path, perm: 0o600}
}

func (r *FileRecorder) Path() string {
	return r.path
}

func (r *FileRecorder) Record(record *PatRecord) error {
	if record == nil {
		return errors.Wrap(apperrors.ErrInvalidRequest, "[FileRecorder.Record] nil record")
	}

	line, err := json.Marshal(record)
	if err != nil {
		return apperrors.Mark(errors.Wrap(err, "[FileRecorder.Record] marshal"), apperrors.ErrIO)
	}
	line = append(line, '\n')

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, r.perm)
	if err != nil {
		return apperrors.Mark(errors.Wrapf(err, "[FileRecorder.Record] open %s", r.path), apperrors.ErrIO)
	}
	if _, err := file.Write(line); err != nil {
		file.Close()
		return apperrors.Mark(errors.Wrapf(err, "[FileRecorder.Record] write %s", r.path), apperrors.ErrIO)
	}
	if err := file.Close(); err != nil {
		return apperrors.Mark(errors.Wrapf(err, "[FileRecorder.Record] close %s", r.path), apperrors.ErrIO)
	}
	return nil
}

// ReadRecords decodes a stream of JSON records. Records may be newline delimited or
// concatenated with no separator at all.
func ReadRecords(r io.Reader) ([]PatRecord, error) {
	decoder := json.NewDecoder(r)
	records := make([]PatRecord, 0)
	for {
		var record PatRecord
		err := decoder.Decode(&record)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "[ReadRecords] record %d", len(records)+1)
		}
		records = append(records, record)
	}
}

// ReadRecordsFile reads every record in the file at path.
func ReadRecordsFile(path string) ([]PatRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[ReadRecordsFile] open %s", path)
	}
	defer file.Close()
	return ReadRecords(file)
}
