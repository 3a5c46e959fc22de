package group

import (
	"encoding/json"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/pkg/errors"
)

// Parse decodes the group wire protocol. The top-level value must be an array
// of objects, each naming a characterId and carrying a string response.
func Parse(text string) ([]llm.GroupReply, error) {
	raw := llm.UnwrapFence(text)

	var top any
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return nil, errors.Wrapf(llm.ErrProtocol, "group reply is not valid JSON: %v", err)
	}
	elems, ok := top.([]any)
	if !ok {
		return nil, errors.Wrapf(llm.ErrProtocol, "group reply is a %T, want a JSON array", top)
	}

	replies := make([]llm.GroupReply, 0, len(elems))
	for i, el := range elems {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(llm.ErrProtocol, "group reply element %d is a %T, want an object", i, el)
		}
		id, _ := obj["characterId"].(string)
		if id == "" {
			return nil, errors.Wrapf(llm.ErrProtocol, "group reply element %d has no characterId", i)
		}
		resp, ok := obj["response"].(string)
		if !ok {
			return nil, errors.Wrapf(llm.ErrProtocol, "group reply element %d has no string response", i)
		}
		replies = append(replies, llm.GroupReply{CharacterID: id, Response: resp})
	}
	return replies, nil
}
