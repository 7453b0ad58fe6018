package filterast

import (
	"encoding/json"
	"fmt"
)

// wireExpr is the JSON-serializable shape of Expr; field names match the
// variant tags named in spec.md §4.2.1 so the wire format is self-describing.
type wireExpr struct {
	Tag Tag `json:"_tag"`

	Children []wireExpr `json:"children,omitempty"`

	Author        string   `json:"author,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Hashtag       string   `json:"hashtag,omitempty"`
	Hashtags      []string `json:"hashtags,omitempty"`
	Text          string   `json:"text,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
	N             int      `json:"n,omitempty"`

	MinLikes   *int `json:"min_likes,omitempty"`
	MinReposts *int `json:"min_reposts,omitempty"`
	MinReplies *int `json:"min_replies,omitempty"`

	Langs []string `json:"langs,omitempty"`

	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	Prompt        string  `json:"prompt,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	OnErrorPolicy OnError `json:"on_error,omitempty"`

	HashtagArg string `json:"tag,omitempty"`
}

func toWire(e Expr) wireExpr {
	w := wireExpr{
		Tag: e.Tag, Author: e.Author, Authors: e.Authors, Hashtag: e.Hashtag,
		Hashtags: e.Hashtags, Text: e.Text, CaseSensitive: e.CaseSensitive, N: e.N,
		MinLikes: e.MinLikes, MinReposts: e.MinReposts, MinReplies: e.MinReplies,
		Langs: e.Langs, Start: e.Start, End: e.End, Prompt: e.Prompt,
		MinConfidence: e.MinConfidence, OnErrorPolicy: e.OnErrorPolicy, HashtagArg: e.Tag_,
	}
	for _, c := range e.Children {
		w.Children = append(w.Children, toWire(c))
	}
	return w
}

func fromWire(w wireExpr) Expr {
	e := Expr{
		Tag: w.Tag, Author: w.Author, Authors: w.Authors, Hashtag: w.Hashtag,
		Hashtags: w.Hashtags, Text: w.Text, CaseSensitive: w.CaseSensitive, N: w.N,
		MinLikes: w.MinLikes, MinReposts: w.MinReposts, MinReplies: w.MinReplies,
		Langs: w.Langs, Start: w.Start, End: w.End, Prompt: w.Prompt,
		MinConfidence: w.MinConfidence, OnErrorPolicy: w.OnErrorPolicy, Tag_: w.HashtagArg,
	}
	for _, c := range w.Children {
		e.Children = append(e.Children, fromWire(c))
	}
	return e
}

// MarshalJSON implements json.Marshaler.
func (e Expr) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(e))
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var w wireExpr
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("filterast: decode: %w", err)
	}
	*e = fromWire(w)
	return nil
}

// String renders a deterministic textual form used as the sort key during
// canonicalization and as a debugging aid. It is not a parseable format.
func (e Expr) String() string {
	b, err := json.Marshal(toWire(e))
	if err != nil {
		return string(e.Tag)
	}
	return string(b)
}
