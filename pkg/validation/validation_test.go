package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "warden/pkg/domain-errors"
)

type loginRequest struct {
	UserID   string `validate:"notblank,max=256"`
	SourceIP string `validate:"required,ip"`
	Level    string `validate:"omitempty,oneof=LOW HIGH"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(loginRequest{UserID: "alice", SourceIP: "10.0.0.1"}))

	tests := []struct {
		name  string
		req   loginRequest
		field string
		msg   string
	}{
		{name: "blank user", req: loginRequest{UserID: "  ", SourceIP: "10.0.0.1"}, field: "user_id", msg: "user_id: must not be blank"},
		{name: "missing ip", req: loginRequest{UserID: "alice"}, field: "source_ip", msg: "source_ip: is required"},
		{name: "bad ip", req: loginRequest{UserID: "alice", SourceIP: "nope"}, field: "source_ip", msg: "source_ip: must be a valid ip address"},
		{name: "bad enum", req: loginRequest{UserID: "alice", SourceIP: "10.0.0.1", Level: "MID"}, field: "level", msg: "level: must be one of [LOW HIGH]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, dErrors.ErrValidation)
			assert.Equal(t, tt.field, dErrors.FieldOf(err))
			assert.EqualError(t, err, tt.msg)
		})
	}
}
