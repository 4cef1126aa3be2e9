package model

import "slices"

// Creator is a creator profile on one service.
type Creator struct {
	ID        ID     `json:"id"`
	Service   string `json:"service"`
	Name      string `json:"name"`
	Indexed   string `json:"indexed,omitempty"`
	Updated   string `json:"updated,omitempty"`
	Favorited int    `json:"favorited,omitempty"`
}

// Key returns "service/id", the identity used across sources.
func (c Creator) Key() string { return c.Service + "/" + string(c.ID) }

// Attachment is a file referenced by a post.
type Attachment struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

// Post is one post by a creator.
type Post struct {
	ID          ID           `json:"id"`
	User        ID           `json:"user"`
	Service     string       `json:"service"`
	Title       string       `json:"title,omitempty"`
	Content     string       `json:"content,omitempty"`
	Published   string       `json:"published,omitempty"`
	File        Attachment   `json:"file,omitzero"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Clone returns a deep copy of p.
func (p Post) Clone() Post {
	p.Attachments = slices.Clone(p.Attachments)
	return p
}

// ClonePosts deep-copies a page of posts.
func ClonePosts(in []Post) []Post {
	if in == nil {
		return nil
	}
	out := make([]Post, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// CloneCreators copies a list of creators. Creator has no reference fields.
func CloneCreators(in []Creator) []Creator {
	return slices.Clone(in)
}
