package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	logger.Record(CodeEventViewed, "Event (42) viewed", "alice@example.com")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.EqualValues(t, CodeEventViewed, entry["code"])
	require.Equal(t, "Event (42) viewed", entry["summary"])
	require.Equal(t, "alice@example.com", entry["actor"])
}

func TestRecordOnNilLoggerIsNoop(t *testing.T) {
	var logger *Logger
	require.NotPanics(t, func() {
		logger.Record(CodeEventAdded, "summary", "actor")
	})
}

func TestFromContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))
	ctx := WithLogger(context.Background(), logger)

	require.Same(t, logger, FromContext(ctx))
}
