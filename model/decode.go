package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Keksclan/rawrfetch/fetcherr"
)

// DecodeCreator parses a creator profile. Bodies that look like HTML are an
// InvalidResponse, malformed JSON is a ParseError and a profile without an
// ID is an InvalidResponse.
func DecodeCreator(body []byte) (Creator, error) {
	var c Creator
	if err := decode(body, &c); err != nil {
		return Creator{}, err
	}
	if c.ID == "" {
		return Creator{}, fetcherr.New(fetcherr.InvalidResponse, "creator without id")
	}
	return c, nil
}

// DecodeCreators parses a list of creators. Entries without an ID are
// dropped. A single object is accepted as a one-element list.
func DecodeCreators(body []byte) ([]Creator, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		c, err := DecodeCreator(trimmed)
		if err != nil {
			return nil, err
		}
		return []Creator{c}, nil
	}

	var list []Creator
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	out := list[:0]
	for _, c := range list {
		if c.ID != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// DecodePost parses a single post. Some services wrap it as {"post": {...}}.
func DecodePost(body []byte) (Post, error) {
	var wrapped struct {
		Post *Post `json:"post"`
	}
	if err := decode(body, &wrapped); err != nil {
		return Post{}, err
	}
	var p Post
	if wrapped.Post != nil {
		p = *wrapped.Post
	} else if err := json.Unmarshal(body, &p); err != nil {
		return Post{}, fetcherr.Wrap(fetcherr.ParseError, err)
	}
	if p.ID == "" {
		return Post{}, fetcherr.New(fetcherr.InvalidResponse, "post without id")
	}
	return p, nil
}

// DecodePosts parses one page of posts. Entries without an ID are dropped.
func DecodePosts(body []byte) ([]Post, error) {
	var list []Post
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	out := list[:0]
	for _, p := range list {
		if p.ID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func decode(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fetcherr.New(fetcherr.InvalidResponse, "empty response body")
	}
	if trimmed[0] == '<' {
		return fetcherr.New(fetcherr.InvalidResponse, "html response when json was expected")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fetcherr.Wrap(fetcherr.ParseError, fmt.Errorf("model: decode: %w", err))
	}
	return nil
}
