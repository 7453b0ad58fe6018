// Package filterrt evaluates a filterast.Expr against a single post in
// memory. Pure leaves are evaluated inline; side-effectful leaves consult
// injected collaborators and honor the leaf's on_error policy. The runtime
// never touches the index (spec.md §4.4).
package filterrt

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// LinkValidator checks whether a URL is currently reachable/valid. It is an
// external collaborator (spec.md §1); this package only depends on the
// interface.
type LinkValidator interface {
	Valid(ctx context.Context, url string) (bool, error)
}

// TrendingProber reports whether a hashtag is currently trending.
type TrendingProber interface {
	Trending(ctx context.Context, tag string) (bool, error)
}

// LlmDecider asks a language model whether a post matches a natural language
// prompt, returning a confidence in [0,1].
type LlmDecider interface {
	Decide(ctx context.Context, prompt string, post *types.Post) (confidence float64, err error)
}

// Collaborators bundles the side-effectful dependencies a Runtime needs.
// Any may be nil if the filter never references the corresponding leaf.
type Collaborators struct {
	Links     LinkValidator
	Trending  TrendingProber
	Llm       LlmDecider
}

// Decision records which leaf produced what verdict, for diagnostics.
type Decision struct {
	Tag    filterast.Tag
	Detail string
	Result bool
	Err    error
}

// Outcome is the result of evaluating a filter against one post.
type Outcome struct {
	Match     bool
	Decisions []Decision
}

// Runtime evaluates filter expressions against posts.
type Runtime struct {
	collab Collaborators
}

// New creates a Runtime with the given collaborators.
func New(collab Collaborators) *Runtime {
	return &Runtime{collab: collab}
}

// Eval evaluates expr against post, returning the match outcome and the
// trail of leaf decisions that contributed to it.
func (r *Runtime) Eval(ctx context.Context, expr filterast.Expr, post *types.Post) (Outcome, error) {
	var out Outcome
	match, err := r.eval(ctx, expr, post, &out)
	if err != nil {
		return out, err
	}
	out.Match = match
	return out, nil
}

func (r *Runtime) eval(ctx context.Context, e filterast.Expr, p *types.Post, out *Outcome) (bool, error) {
	switch e.Tag {
	case filterast.TagAll:
		return true, nil
	case filterast.TagNone:
		return false, nil
	case filterast.TagAnd:
		for _, c := range e.Children {
			ok, err := r.eval(ctx, c, p, out)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case filterast.TagOr:
		for _, c := range e.Children {
			ok, err := r.eval(ctx, c, p, out)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case filterast.TagNot:
		ok, err := r.eval(ctx, e.Children[0], p, out)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case filterast.TagAuthor:
		return strings.EqualFold(string(p.Author), e.Author), nil
	case filterast.TagAuthorIn:
		for _, a := range e.Authors {
			if strings.EqualFold(string(p.Author), a) {
				return true, nil
			}
		}
		return false, nil
	case filterast.TagHashtag:
		return hasHashtag(p, e.Hashtag), nil
	case filterast.TagHashtagIn:
		for _, t := range e.Hashtags {
			if hasHashtag(p, t) {
				return true, nil
			}
		}
		return false, nil
	case filterast.TagContains:
		return containsText(p.Text, e.Text, e.CaseSensitive), nil
	case filterast.TagIsReply:
		return p.IsReply(), nil
	case filterast.TagIsQuote:
		return p.IsQuote(), nil
	case filterast.TagIsRepost:
		return p.IsRepost(), nil
	case filterast.TagIsOriginal:
		return p.IsOriginal(), nil
	case filterast.TagHasLinks:
		return p.HasLinks(), nil
	case filterast.TagHasMedia:
		return p.HasMedia(), nil
	case filterast.TagHasEmbed:
		return p.HasEmbed(), nil
	case filterast.TagHasImages:
		return p.HasImages(), nil
	case filterast.TagHasVideo:
		return p.HasVideo(), nil
	case filterast.TagMinImages:
		return p.ImageCount() >= e.N, nil
	case filterast.TagHasAltText:
		return p.HasAltText(), nil
	case filterast.TagNoAltText:
		return p.ImageCount() > 0 && !p.HasAltText(), nil
	case filterast.TagAltText:
		return containsText(p.AltText(), e.Text, false), nil
	case filterast.TagLanguage:
		for _, want := range e.Langs {
			for _, have := range p.Langs {
				if strings.EqualFold(have, want) {
					return true, nil
				}
			}
		}
		return false, nil
	case filterast.TagEngagement:
		return evalEngagement(e, p), nil
	case filterast.TagDateRange:
		return evalDateRange(e, p)
	case filterast.TagRegex:
		return r.evalRegex(e, p, out)
	case filterast.TagHasValidLinks:
		return r.evalHasValidLinks(ctx, e, p, out)
	case filterast.TagTrending:
		return r.evalTrending(ctx, e, out)
	case filterast.TagLlm:
		return r.evalLlm(ctx, e, p, out)
	default:
		return false, fmt.Errorf("filterrt: unknown filter tag %q", e.Tag)
	}
}

func hasHashtag(p *types.Post, tag string) bool {
	want := strings.ToLower(strings.TrimPrefix(tag, "#"))
	for _, t := range p.Hashtags {
		if t == want {
			return true
		}
	}
	return false
}

func containsText(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func evalEngagement(e filterast.Expr, p *types.Post) bool {
	m := p.Metrics
	if m == nil {
		m = &types.Metrics{}
	}
	if e.MinLikes != nil && m.LikeCount < *e.MinLikes {
		return false
	}
	if e.MinReposts != nil && m.RepostCount < *e.MinReposts {
		return false
	}
	if e.MinReplies != nil && m.ReplyCount < *e.MinReplies {
		return false
	}
	return true
}

func evalDateRange(e filterast.Expr, p *types.Post) (bool, error) {
	if e.Start != "" {
		start, err := time.Parse(time.RFC3339, e.Start)
		if err != nil {
			return false, fmt.Errorf("filterrt: invalid date_range start %q: %w", e.Start, err)
		}
		if p.CreatedAt.Before(start) {
			return false, nil
		}
	}
	if e.End != "" {
		end, err := time.Parse(time.RFC3339, e.End)
		if err != nil {
			return false, fmt.Errorf("filterrt: invalid date_range end %q: %w", e.End, err)
		}
		if p.CreatedAt.After(end) {
			return false, nil
		}
	}
	return true, nil
}

func (r *Runtime) evalRegex(e filterast.Expr, p *types.Post, out *Outcome) (bool, error) {
	re, err := regexp.Compile(e.Text)
	if err != nil {
		return r.onError(e.OnErrorPolicy, out, filterast.TagRegex, e.Text, fmt.Errorf("filterrt: invalid regex %q: %w", e.Text, err))
	}
	match := re.MatchString(p.Text)
	out.Decisions = append(out.Decisions, Decision{Tag: filterast.TagRegex, Detail: e.Text, Result: match})
	return match, nil
}

func (r *Runtime) evalHasValidLinks(ctx context.Context, e filterast.Expr, p *types.Post, out *Outcome) (bool, error) {
	if r.collab.Links == nil {
		return r.onError(e.OnErrorPolicy, out, filterast.TagHasValidLinks, "", fmt.Errorf("filterrt: no link validator configured"))
	}
	if len(p.Links) == 0 {
		return false, nil
	}
	for _, l := range p.Links {
		ok, err := r.collab.Links.Valid(ctx, l)
		if err != nil {
			return r.onError(e.OnErrorPolicy, out, filterast.TagHasValidLinks, l, err)
		}
		out.Decisions = append(out.Decisions, Decision{Tag: filterast.TagHasValidLinks, Detail: l, Result: ok})
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Runtime) evalTrending(ctx context.Context, e filterast.Expr, out *Outcome) (bool, error) {
	if r.collab.Trending == nil {
		return r.onError(e.OnErrorPolicy, out, filterast.TagTrending, e.Tag_, fmt.Errorf("filterrt: no trending prober configured"))
	}
	ok, err := r.collab.Trending.Trending(ctx, e.Tag_)
	if err != nil {
		return r.onError(e.OnErrorPolicy, out, filterast.TagTrending, e.Tag_, err)
	}
	out.Decisions = append(out.Decisions, Decision{Tag: filterast.TagTrending, Detail: e.Tag_, Result: ok})
	return ok, nil
}

func (r *Runtime) evalLlm(ctx context.Context, e filterast.Expr, p *types.Post, out *Outcome) (bool, error) {
	if r.collab.Llm == nil {
		return r.onError(e.OnErrorPolicy, out, filterast.TagLlm, e.Prompt, fmt.Errorf("filterrt: no LLM decider configured"))
	}
	confidence, err := r.collab.Llm.Decide(ctx, e.Prompt, p)
	if err != nil {
		return r.onError(e.OnErrorPolicy, out, filterast.TagLlm, e.Prompt, err)
	}
	match := confidence >= e.MinConfidence
	out.Decisions = append(out.Decisions, Decision{Tag: filterast.TagLlm, Detail: e.Prompt, Result: match})
	return match, nil
}

// onError applies a leaf's on_error policy: Exclude treats the failure as a
// non-match (and surfaces no error to the caller, since this is a per-post
// decision, not a sync-level error); Include treats it as a match.
// Both record the failure in the decision trail (Decision.Err) and return a
// nil error, so callers that want to distinguish "failed closed" from
// "genuinely excluded" inspect Outcome.Decisions.
func (r *Runtime) onError(policy filterast.OnError, out *Outcome, tag filterast.Tag, detail string, cause error) (bool, error) {
	result := policy == filterast.OnErrorInclude
	out.Decisions = append(out.Decisions, Decision{Tag: tag, Detail: detail, Result: result, Err: cause})
	return result, nil
}
