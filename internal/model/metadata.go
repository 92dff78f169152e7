package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SessionMetadata はセッションが保持するユーザーメタデータ。
// OAuthプロバイダーから得た値とユーザーが明示的に設定した値の両方を持つ。
type SessionMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Picture   string `json:"picture,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

const sessionMetadataSchema = `{
	"type": "object",
	"properties": {
		"full_name":  {"type": "string", "maxLength": 100},
		"name":       {"type": "string", "maxLength": 100},
		"avatar_url": {"type": "string", "maxLength": 2048},
		"picture":    {"type": "string", "maxLength": 2048},
		"provider":   {"type": "string", "enum": ["email", "google"]}
	}
}`

var metadataSchema = jsonschema.MustCompileString("session_metadata.json", sessionMetadataSchema)

// ParseSessionMetadata はJSONのメタデータをスキーマ検証したうえでSessionMetadataに変換する。
// 空入力はゼロ値として扱う。
func ParseSessionMetadata(raw []byte) (SessionMetadata, error) {
	var md SessionMetadata
	if len(strings.TrimSpace(string(raw))) == 0 {
		return md, nil
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return md, fmt.Errorf("failed to decode session metadata: %w", err)
	}
	if err := metadataSchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return md, fmt.Errorf("invalid session metadata: %s", firstCause(ve))
		}
		return md, fmt.Errorf("invalid session metadata: %w", err)
	}

	if err := json.Unmarshal(raw, &md); err != nil {
		return md, fmt.Errorf("failed to decode session metadata: %w", err)
	}
	return md, nil
}

// MarshalSessionMetadata はSessionMetadataをsessions.dataに保存するJSONに変換する。
// 保存前にも同じスキーマで検証する。
func MarshalSessionMetadata(md SessionMetadata) ([]byte, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session metadata: %w", err)
	}
	if _, err := ParseSessionMetadata(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// firstCause は最も深い検証エラーの位置とメッセージを返す。
func firstCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return fmt.Sprintf("%s: %s", ve.InstanceLocation, ve.Message)
}
