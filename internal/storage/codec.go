package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vitaly-krugl/htmresearch/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeConfigRecord(r model.ConfigRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeConfigRecord(data []byte) (model.ConfigRecord, error) {
	var record model.ConfigRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ConfigRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.ConfigRecord{}, fmt.Errorf("config %s: %w", record.Name, err)
	}
	return record, nil
}

func EncodeAssemblySummary(s model.AssemblySummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeAssemblySummary(data []byte) (model.AssemblySummary, error) {
	var summary model.AssemblySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.AssemblySummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.AssemblySummary{}, fmt.Errorf("summary %s: %w", summary.ID, err)
	}
	return summary, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
