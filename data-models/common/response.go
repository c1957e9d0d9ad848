package common

import (
	"bytes"
	"encoding/json"
	"errors"
)

// OkResponse 刪除成功等只需回報結果的回應
type OkResponse struct {
	Body struct {
		Ok bool `json:"ok" example:"true" doc:"操作是否成功"`
	}
}

// NewOkResponse 建立 {"ok": true}
func NewOkResponse() *OkResponse {
	resp := &OkResponse{}
	resp.Body.Ok = true
	return resp
}

// CountResponse 回傳單一整數的統計結果
type CountResponse struct {
	Body int64 `example:"42" doc:"杯數"`
}

var (
	// ErrEmptyPatch PATCH 內容不是 JSON 物件
	ErrEmptyPatch = errors.New("request body must be a JSON object")
	// ErrNullField 必填欄位被設為 null
	ErrNullField = errors.New("field may not be null")
)

// PatchKeys 解析 PATCH 原始內容，回傳出現的欄位名稱及其值是否為 null
func PatchKeys(raw []byte) (map[string]bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]bool{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, ErrEmptyPatch
	}

	keys := make(map[string]bool, len(fields))
	for key, value := range fields {
		keys[key] = bytes.Equal(bytes.TrimSpace(value), []byte("null"))
	}
	return keys, nil
}
