package sandbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// 网关信封中的结果码。CodeRequestFailed 及之后的结果码由客户端本地合成。
const (
	CodeSuccess         = 1000
	CodeInvalidArgument = 4000
	CodeNotFound        = 4004
	CodeRequestFailed   = 5000
	CodeInvalidResponse = 5001
	CodeWaitTimeout     = 5002
	CodeSandboxExited   = 5003
	CodeIDMismatch      = 5004
)

const messageEmptyResponse = "response is empty"

// Result 是网关通用的 {code, message, data} 响应信封。
// 成功与否只取决于 Code，与 HTTP 状态码无关；失败结果的 Data 恒为 nil。
type Result struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`

	rawData json.RawMessage
}

// IsSuccess 报告网关是否返回成功码。
func (r Result) IsSuccess() bool {
	return r.Code == CodeSuccess
}

// RawData 返回 data 字段的原始 JSON，失败结果返回 nil。
func (r Result) RawData() json.RawMessage {
	return r.rawData
}

// DecodeData 把 data 字段解码到 v。
func (r Result) DecodeData(v any) error {
	if !r.IsSuccess() {
		return fmt.Errorf("sandbox: decode data of failed result (code %d)", r.Code)
	}
	if len(r.rawData) == 0 {
		return fmt.Errorf("sandbox: result has no data")
	}
	return json.Unmarshal(r.rawData, v)
}

// DataString 以字符串形式返回 data 中 key 对应的值，不存在时返回空字符串。
func (r Result) DataString(key string) string {
	if r.Data == nil {
		return ""
	}
	switch v := r.Data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// CreatedID 返回创建接口分配的 sandbox_id。
func (r Result) CreatedID() string {
	return strings.TrimSpace(r.DataString("sandbox_id"))
}

func failureResult(code int, message string) Result {
	return Result{Code: code, Message: message}
}

func successResult(message string, data map[string]any) Result {
	raw, _ := json.Marshal(data)
	return Result{Code: CodeSuccess, Message: message, Data: data, rawData: raw}
}

// ParseResult 解析网关响应体。空响应体与无法解码的响应体都视为失败。
func ParseResult(body []byte) Result {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return failureResult(CodeInvalidResponse, messageEmptyResponse)
	}

	var envelope struct {
		Code    *int            `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return failureResult(CodeInvalidResponse, "invalid response: "+err.Error())
	}
	if envelope.Code == nil {
		return failureResult(CodeInvalidResponse, "invalid response: missing code")
	}

	result := Result{Code: *envelope.Code, Message: envelope.Message}
	if !result.IsSuccess() {
		return result
	}
	if raw := bytes.TrimSpace(envelope.Data); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		result.rawData = raw
		if raw[0] == '{' {
			decoder := json.NewDecoder(bytes.NewReader(raw))
			decoder.UseNumber()
			var data map[string]any
			if err := decoder.Decode(&data); err != nil {
				return failureResult(CodeInvalidResponse, "invalid response data: "+err.Error())
			}
			result.Data = data
		}
	}
	return result
}

// StatusResult 是单个沙箱的状态查询结果。
type StatusResult struct {
	Result
	SandboxID string
	Status    SandboxStatus
}

// IsAvailable 报告查询成功且沙箱处于可用状态。
func (r StatusResult) IsAvailable() bool {
	return r.IsSuccess() && r.Status.IsAvailable()
}

func newStatusResult(result Result, sandboxID string) StatusResult {
	if result.Code == CodeNotFound {
		// 网关的 not-found 是有意义的状态，不是失败
		return StatusResult{
			Result: successResult(result.Message, map[string]any{
				"sandbox_id": sandboxID,
				"status":     string(StatusNotFound),
			}),
			SandboxID: sandboxID,
			Status:    StatusNotFound,
		}
	}
	if !result.IsSuccess() {
		return StatusResult{Result: result, SandboxID: sandboxID, Status: StatusUnknown}
	}

	id := result.DataString("sandbox_id")
	if id == "" {
		id = sandboxID
	}
	return StatusResult{
		Result:    result,
		SandboxID: id,
		Status:    ParseSandboxStatus(result.DataString("status")),
	}
}

// SandboxState 是批量查询中的一项。
type SandboxState struct {
	SandboxID string        `json:"sandbox_id"`
	Status    SandboxStatus `json:"status"`
}

// BatchStatusResult 是批量状态查询结果。
type BatchStatusResult struct {
	Result
	Sandboxes []SandboxState
}

// TotalCount 返回结果中的沙箱数量。
func (r BatchStatusResult) TotalCount() int {
	return len(r.Sandboxes)
}

// RunningCount 返回处于 Running 状态的沙箱数量。
func (r BatchStatusResult) RunningCount() int {
	n := 0
	for _, s := range r.Sandboxes {
		if s.Status.IsAvailable() {
			n++
		}
	}
	return n
}

// StatusOf 返回指定沙箱的状态，结果中不存在时返回 StatusNotFound。
func (r BatchStatusResult) StatusOf(sandboxID string) SandboxStatus {
	for _, s := range r.Sandboxes {
		if s.SandboxID == sandboxID {
			return s.Status
		}
	}
	return StatusNotFound
}

type rawSandboxState struct {
	SandboxID string `json:"sandbox_id"`
	Status    string `json:"status"`
}

func newBatchStatusResult(result Result) BatchStatusResult {
	if !result.IsSuccess() {
		return BatchStatusResult{Result: result}
	}

	raw := bytes.TrimSpace(result.rawData)
	var items []rawSandboxState
	if len(raw) > 0 {
		var err error
		if raw[0] == '[' {
			err = json.Unmarshal(raw, &items)
		} else {
			var wrapped struct {
				Sandboxes []rawSandboxState `json:"sandboxes"`
				Items     []rawSandboxState `json:"items"`
			}
			err = json.Unmarshal(raw, &wrapped)
			items = wrapped.Sandboxes
			if items == nil {
				items = wrapped.Items
			}
		}
		if err != nil {
			return BatchStatusResult{Result: failureResult(CodeInvalidResponse, "invalid batch status data: "+err.Error())}
		}
	}

	states := make([]SandboxState, 0, len(items))
	for _, item := range items {
		states = append(states, SandboxState{
			SandboxID: item.SandboxID,
			Status:    ParseSandboxStatus(item.Status),
		})
	}
	return BatchStatusResult{Result: result, Sandboxes: states}
}
