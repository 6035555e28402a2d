package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "chatguard/pkg/domain-errors"
)

// parsers exercises both identifier kinds through one table.
var parsers = map[string]func(string) (string, error){
	"user_id": func(s string) (string, error) {
		id, err := ParseUserID(s)
		return id.String(), err
	},
	"violation_id": func(s string) (string, error) {
		id, err := ParseViolationID(s)
		return id.String(), err
	},
}

func TestParseID_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty", "", "%s is required"},
		{"whitespace only", " \t ", "%s is required"},
		{"not a uuid", "sender-42", "invalid %s"},
		{"sql in path segment", "'; DELETE FROM violation_events;--", "invalid %s"},
		{"path traversal", "../../users/all", "invalid %s"},
		{"null byte", "550e8400\x00-e29b-41d4-a716-446655440000", "invalid %s"},
		{"zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", "invalid %s"},
		{"oversized", strings.Repeat("f", 4*maxIDLength), "invalid %s"},
		{"nil uuid", uuid.Nil.String(), "%s cannot be nil"},
	}

	for kind, parse := range parsers {
		for _, tt := range tests {
			t.Run(kind+"/"+tt.name, func(t *testing.T) {
				_, err := parse(tt.input)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				assert.Contains(t, err.Error(), strings.ReplaceAll(tt.message, "%s", kind))
			})
		}
	}
}

func TestParseID_AcceptsAnyCase(t *testing.T) {
	raw := uuid.New().String()
	for kind, parse := range parsers {
		for _, in := range []string{raw, strings.ToUpper(raw)} {
			got, err := parse(in)
			require.NoError(t, err, kind)
			assert.Equal(t, raw, got, "canonical lower-case form")
		}
	}
}

func TestIDs_JSONPayload(t *testing.T) {
	type payload struct {
		UserID      UserID      `json:"user_id"`
		ViolationID ViolationID `json:"violation_id"`
	}
	in := payload{UserID: UserID(uuid.New()), ViolationID: NewViolationID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"user_id":"`+in.UserID.String()+`","violation_id":"`+in.ViolationID.String()+`"}`,
		string(raw))

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"user_id":"00000000-0000-0000-0000-000000000000"}`), &out)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "nil ids are rejected on decode")
}

func TestIDs_IsNil(t *testing.T) {
	assert.True(t, UserID{}.IsNil())
	assert.True(t, ViolationID{}.IsNil())
	assert.False(t, NewViolationID().IsNil())
}
