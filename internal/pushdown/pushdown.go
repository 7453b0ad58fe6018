// Package pushdown compiles a filterast.Expr into a SQL WHERE fragment that
// the index's posts/post_hashtag/post_lang/posts_fts tables can evaluate.
// Leaves the database cannot evaluate are rewritten to an always-true
// fragment so the compiled SQL over-approximates the full filter (spec.md
// §4.2.1, §8 invariant 7): a final in-memory pass (outside this core)
// narrows the result set down to an exact match.
package pushdown

import (
	"fmt"
	"strings"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/ids"
)

// Fragment is a compiled WHERE clause plus its positional arguments.
type Fragment struct {
	SQL   string
	Args  []any
	Exact bool // true iff SQL is exactly equivalent to the source expression
}

// Compile translates a filter expression into a Fragment. The returned SQL
// is always a superset-safe over-approximation: every post matching the
// source expression also satisfies SQL, but the converse need not hold
// unless Exact is true.
func Compile(e filterast.Expr) Fragment {
	e = filterast.Simplify(e)
	return compile(e)
}

func compile(e filterast.Expr) Fragment {
	switch e.Tag {
	case filterast.TagAll:
		return Fragment{SQL: "1=1", Exact: true}
	case filterast.TagNone:
		return Fragment{SQL: "1=0", Exact: true}
	case filterast.TagAnd:
		return compileAnd(e.Children)
	case filterast.TagOr:
		return compileOr(e.Children)
	case filterast.TagNot:
		return compileNot(e.Children[0])
	case filterast.TagAuthor:
		return Fragment{SQL: "LOWER(p.author) = LOWER(?)", Args: []any{e.Author}, Exact: true}
	case filterast.TagAuthorIn:
		return authorInFragment(e.Authors)
	case filterast.TagHashtag:
		return Fragment{
			SQL:   "EXISTS (SELECT 1 FROM post_hashtag h WHERE h.uri = p.uri AND h.tag = ?)",
			Args:  []any{ids.NormalizeHashtag(e.Hashtag)},
			Exact: true,
		}
	case filterast.TagHashtagIn:
		if len(e.Hashtags) == 0 {
			return Fragment{SQL: "1=0", Exact: true}
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(e.Hashtags)), ",")
		args := make([]any, len(e.Hashtags))
		for i, t := range e.Hashtags {
			args[i] = ids.NormalizeHashtag(t)
		}
		return Fragment{
			SQL:   fmt.Sprintf("EXISTS (SELECT 1 FROM post_hashtag h WHERE h.uri = p.uri AND h.tag IN (%s))", placeholders),
			Args:  args,
			Exact: true,
		}
	case filterast.TagIsReply:
		return Fragment{SQL: "p.is_reply = 1", Exact: true}
	case filterast.TagIsQuote:
		return Fragment{SQL: "p.is_quote = 1", Exact: true}
	case filterast.TagIsRepost:
		return Fragment{SQL: "p.is_repost = 1", Exact: true}
	case filterast.TagIsOriginal:
		return Fragment{SQL: "p.is_original = 1", Exact: true}
	case filterast.TagHasLinks:
		return Fragment{SQL: "p.has_links = 1", Exact: true}
	case filterast.TagHasMedia:
		return Fragment{SQL: "p.has_media = 1", Exact: true}
	case filterast.TagHasEmbed:
		return Fragment{SQL: "p.has_embed = 1", Exact: true}
	case filterast.TagHasImages:
		return Fragment{SQL: "p.has_images = 1", Exact: true}
	case filterast.TagHasVideo:
		return Fragment{SQL: "p.has_video = 1", Exact: true}
	case filterast.TagMinImages:
		return Fragment{SQL: "p.image_count >= ?", Args: []any{e.N}, Exact: true}
	case filterast.TagHasAltText:
		return Fragment{SQL: "p.has_alt_text = 1", Exact: true}
	case filterast.TagNoAltText:
		return Fragment{SQL: "p.image_count > 0 AND p.has_alt_text = 0", Exact: true}
	case filterast.TagAltText:
		// The runtime evaluates this as a case-insensitive substring match
		// (filterrt.containsText against Post.AltText()), not a tokenized
		// FTS match, so the pushdown must agree: an FTS5 MATCH only finds
		// whole-token hits and would under-match (e.g. "ubern" inside
		// "Kubernetes"), violating the over-approximation invariant.
		if !isASCII(e.Text) {
			return trueFragment()
		}
		return Fragment{
			SQL:   "instr(lower(p.alt_text), lower(?)) > 0",
			Args:  []any{e.Text},
			Exact: true,
		}
	case filterast.TagLanguage:
		if len(e.Langs) == 0 {
			return Fragment{SQL: "1=0", Exact: true}
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(e.Langs)), ",")
		args := make([]any, 0, len(e.Langs)*2)
		for _, l := range e.Langs {
			args = append(args, strings.ToLower(l))
		}
		for _, l := range e.Langs {
			args = append(args, strings.ToLower(l))
		}
		return Fragment{
			SQL: fmt.Sprintf(
				"(EXISTS (SELECT 1 FROM post_lang pl WHERE pl.uri = p.uri AND pl.lang IN (%s)) OR LOWER(p.lang) IN (%s))",
				placeholders, placeholders),
			Args:  args,
			Exact: true,
		}
	case filterast.TagEngagement:
		return compileEngagement(e)
	case filterast.TagDateRange:
		return compileDateRange(e)
	case filterast.TagContains:
		return compileContains(e)
	default:
		// Regex, HasValidLinks, Trending, Llm: side-effectful/unsupported leaves.
		return trueFragment()
	}
}

func trueFragment() Fragment { return Fragment{SQL: "1=1", Exact: false} }

func compileAnd(children []filterast.Expr) Fragment {
	var parts []string
	var args []any
	exact := true
	for _, c := range children {
		f := compile(c)
		if !f.Exact {
			exact = false
			continue
		}
		parts = append(parts, f.SQL)
		args = append(args, f.Args...)
	}
	if len(parts) == 0 {
		return Fragment{SQL: "1=1", Exact: exact}
	}
	return Fragment{SQL: "(" + strings.Join(parts, " AND ") + ")", Args: args, Exact: exact}
}

func compileOr(children []filterast.Expr) Fragment {
	compiled := make([]Fragment, len(children))
	allExact := true
	for i, c := range children {
		compiled[i] = compile(c)
		if !compiled[i].Exact {
			allExact = false
		}
	}
	if !allExact {
		return trueFragment()
	}
	var parts []string
	var args []any
	for _, f := range compiled {
		parts = append(parts, f.SQL)
		args = append(args, f.Args...)
	}
	return Fragment{SQL: "(" + strings.Join(parts, " OR ") + ")", Args: args, Exact: true}
}

func compileNot(child filterast.Expr) Fragment {
	f := compile(child)
	if !f.Exact {
		return trueFragment()
	}
	return Fragment{SQL: "NOT (" + f.SQL + ")", Args: f.Args, Exact: true}
}

func compileEngagement(e filterast.Expr) Fragment {
	var parts []string
	var args []any
	if e.MinLikes != nil {
		parts = append(parts, "p.like_count >= ?")
		args = append(args, *e.MinLikes)
	}
	if e.MinReposts != nil {
		parts = append(parts, "p.repost_count >= ?")
		args = append(args, *e.MinReposts)
	}
	if e.MinReplies != nil {
		parts = append(parts, "p.reply_count >= ?")
		args = append(args, *e.MinReplies)
	}
	if len(parts) == 0 {
		return Fragment{SQL: "1=1", Exact: true}
	}
	return Fragment{SQL: "(" + strings.Join(parts, " AND ") + ")", Args: args, Exact: true}
}

func compileDateRange(e filterast.Expr) Fragment {
	switch {
	case e.Start != "" && e.End != "":
		return Fragment{SQL: "p.created_at BETWEEN ? AND ?", Args: []any{e.Start, e.End}, Exact: true}
	case e.Start != "":
		return Fragment{SQL: "p.created_at >= ?", Args: []any{e.Start}, Exact: true}
	case e.End != "":
		return Fragment{SQL: "p.created_at <= ?", Args: []any{e.End}, Exact: true}
	default:
		return Fragment{SQL: "1=1", Exact: true}
	}
}

func compileContains(e filterast.Expr) Fragment {
	if e.CaseSensitive {
		return Fragment{SQL: "instr(p.text, ?) > 0", Args: []any{e.Text}, Exact: true}
	}
	// Case-insensitive: SQLite's lower() is ASCII-only, so non-ASCII text
	// cannot be pushed down (spec.md §9 Open Questions: fall back to
	// in-memory evaluation, the newer and canonical behavior).
	if !isASCII(e.Text) {
		return trueFragment()
	}
	return Fragment{SQL: "instr(lower(p.text), lower(?)) > 0", Args: []any{e.Text}, Exact: true}
}

// authorInFragment matches p.author case-insensitively against values,
// agreeing with filterrt's strings.EqualFold comparison (handles are
// stored as received, never lowercased at index time).
func authorInFragment(values []string) Fragment {
	if len(values) == 0 {
		return Fragment{SQL: "1=0", Exact: true}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("LOWER(?),", len(values)), ",")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return Fragment{SQL: fmt.Sprintf("LOWER(p.author) IN (%s)", placeholders), Args: args, Exact: true}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
