package string

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"UserID":              "user_id",
		"SourceIP":            "source_ip",
		"RetentionPeriodDays": "retention_period_days",
		"HTTPStatus":          "http_status",
		"Level":               "level",
		"user_id":             "user_id",
		"Base64Value":         "base64_value",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}
