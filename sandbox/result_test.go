package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	r := ParseResult(nil)
	assert.False(t, r.IsSuccess())
	assert.Equal(t, CodeInvalidResponse, r.Code)
	assert.Equal(t, "response is empty", r.Message)

	r = ParseResult([]byte("  \n"))
	assert.Equal(t, CodeInvalidResponse, r.Code)

	r = ParseResult([]byte("<html>bad gateway</html>"))
	assert.Equal(t, CodeInvalidResponse, r.Code)

	r = ParseResult([]byte(`{"message":"no code"}`))
	assert.Equal(t, CodeInvalidResponse, r.Code)

	r = ParseResult([]byte(`{"code":5000,"message":"boom","data":{"sandbox_id":"sb-1"}}`))
	assert.False(t, r.IsSuccess())
	assert.Equal(t, "boom", r.Message)
	assert.Nil(t, r.Data)
	assert.Nil(t, r.RawData())
	assert.Empty(t, r.CreatedID())

	r = ParseResult([]byte(`{"code":1000,"message":"ok","data":{"sandbox_id":" sb-1 ","port":8080}}`))
	require.True(t, r.IsSuccess())
	assert.Equal(t, "sb-1", r.CreatedID())
	assert.Equal(t, "8080", r.DataString("port"))
	assert.Empty(t, r.DataString("missing"))

	var decoded struct {
		Port int `json:"port"`
	}
	require.NoError(t, r.DecodeData(&decoded))
	assert.Equal(t, 8080, decoded.Port)

	r = ParseResult([]byte(`{"code":1000,"data":[1,2]}`))
	require.True(t, r.IsSuccess())
	assert.Nil(t, r.Data)
	assert.JSONEq(t, `[1,2]`, string(r.RawData()))
}

func TestStatusResult(t *testing.T) {
	s := newStatusResult(ParseResult([]byte(`{"code":4004,"message":"sandbox not found"}`)), "sb-1")
	assert.True(t, s.IsSuccess())
	assert.Equal(t, StatusNotFound, s.Status)
	assert.Equal(t, "sb-1", s.SandboxID)
	assert.False(t, s.IsAvailable())

	s = newStatusResult(ParseResult([]byte(`{"code":1000,"data":{"sandbox_id":"sb-1","status":"running"}}`)), "sb-1")
	assert.Equal(t, StatusRunning, s.Status)
	assert.True(t, s.IsAvailable())

	s = newStatusResult(ParseResult([]byte(`{"code":1000,"data":{}}`)), "sb-1")
	assert.Equal(t, StatusUnknown, s.Status)
	assert.Equal(t, "sb-1", s.SandboxID)

	s = newStatusResult(failureResult(CodeRequestFailed, "timeout"), "sb-1")
	assert.False(t, s.IsSuccess())
	assert.Equal(t, StatusUnknown, s.Status)
}

func TestBatchStatusResult(t *testing.T) {
	b := newBatchStatusResult(ParseResult([]byte(`{"code":1000,"data":[{"sandbox_id":"a","status":"Running"},{"sandbox_id":"b","status":"Exited"}]}`)))
	require.True(t, b.IsSuccess())
	assert.Equal(t, 2, b.TotalCount())
	assert.Equal(t, 1, b.RunningCount())
	assert.Equal(t, StatusExited, b.StatusOf("b"))
	assert.Equal(t, StatusNotFound, b.StatusOf("c"))

	b = newBatchStatusResult(ParseResult([]byte(`{"code":1000,"data":{"items":[{"sandbox_id":"a","status":"Pending"}]}}`)))
	assert.Equal(t, 1, b.TotalCount())
	assert.Equal(t, 0, b.RunningCount())

	b = newBatchStatusResult(ParseResult([]byte(`{"code":1000,"data":{"sandboxes":"oops"}}`)))
	assert.Equal(t, CodeInvalidResponse, b.Code)
	assert.Zero(t, b.TotalCount())
}

func TestParseSandboxStatus(t *testing.T) {
	assert.Equal(t, StatusPending, ParseSandboxStatus("PENDING"))
	assert.Equal(t, StatusExited, ParseSandboxStatus(" exited "))
	assert.Equal(t, StatusNotFound, ParseSandboxStatus("notfound"))
	assert.Equal(t, StatusUnknown, ParseSandboxStatus("starting"))
	assert.True(t, StatusRunning.IsAvailable())
	assert.False(t, StatusPending.IsAvailable())
}
