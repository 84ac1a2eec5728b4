package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"operon/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp returns the current record version.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeSession(s model.SessionRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSession(data []byte) (model.SessionRecord, error) {
	var session model.SessionRecord
	if err := json.Unmarshal(data, &session); err != nil {
		return model.SessionRecord{}, err
	}
	if err := checkVersion(session.VersionedRecord); err != nil {
		return model.SessionRecord{}, err
	}
	return session, nil
}

func EncodeTrace(trace []model.DispatchRecord) ([]byte, error) {
	return json.Marshal(trace)
}

func DecodeTrace(data []byte) ([]model.DispatchRecord, error) {
	var trace []model.DispatchRecord
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, err
	}
	for _, record := range trace {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return trace, nil
}

// sortSessions orders sessions newest first, then by id.
func sortSessions(sessions []model.SessionRecord) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAtUTC != sessions[j].CreatedAtUTC {
			return sessions[i].CreatedAtUTC > sessions[j].CreatedAtUTC
		}
		return sessions[i].ID < sessions[j].ID
	})
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
