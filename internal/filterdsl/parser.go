package filterdsl

import (
	"fmt"
	"strconv"

	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
)

// Parser builds a filterast.Expr directly from tokens, the way the
// teacher's query.Parser builds its own Node tree -- but here the AST
// target is the same representation the JSON wire format decodes to, so no
// separate evaluator/lowering pass is needed.
type Parser struct {
	lexer   *Lexer
	current Token
	peeked  *Token
}

// NewParser creates a Parser over input.
func NewParser(input string) *Parser {
	return &Parser{lexer: NewLexer(input)}
}

// Parse compiles a filter DSL string into a filterast.Expr.
func Parse(input string) (filterast.Expr, error) {
	p := NewParser(input)
	if err := p.advance(); err != nil {
		return filterast.Expr{}, err
	}
	expr, err := p.parseOr()
	if err != nil {
		return filterast.Expr{}, err
	}
	if p.current.Type != TokenEOF {
		return filterast.Expr{}, fmt.Errorf("filterdsl: unexpected token %q at position %d", p.current.Value, p.current.Pos)
	}
	return expr, nil
}

func (p *Parser) advance() error {
	if p.peeked != nil {
		p.current = *p.peeked
		p.peeked = nil
		return nil
	}
	t, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.current = t
	return nil
}

func (p *Parser) parseOr() (filterast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return filterast.Expr{}, err
	}
	children := []filterast.Expr{left}
	for p.current.Type == TokenOr {
		if err := p.advance(); err != nil {
			return filterast.Expr{}, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return filterast.Expr{}, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return filterast.Or(children...), nil
}

func (p *Parser) parseAnd() (filterast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return filterast.Expr{}, err
	}
	children := []filterast.Expr{left}
	for p.current.Type == TokenAnd {
		if err := p.advance(); err != nil {
			return filterast.Expr{}, err
		}
		right, err := p.parseNot()
		if err != nil {
			return filterast.Expr{}, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return filterast.And(children...), nil
}

func (p *Parser) parseNot() (filterast.Expr, error) {
	if p.current.Type == TokenNot {
		if err := p.advance(); err != nil {
			return filterast.Expr{}, err
		}
		child, err := p.parseNot()
		if err != nil {
			return filterast.Expr{}, err
		}
		return filterast.Not(child), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (filterast.Expr, error) {
	switch p.current.Type {
	case TokenLParen:
		if err := p.advance(); err != nil {
			return filterast.Expr{}, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return filterast.Expr{}, err
		}
		if p.current.Type != TokenRParen {
			return filterast.Expr{}, fmt.Errorf("filterdsl: expected ')' at position %d", p.current.Pos)
		}
		if err := p.advance(); err != nil {
			return filterast.Expr{}, err
		}
		return inner, nil
	case TokenHashtag:
		tag := p.current.Value
		if err := p.advance(); err != nil {
			return filterast.Expr{}, err
		}
		return filterast.Expr{Tag: filterast.TagHashtag, Hashtag: tag}, nil
	case TokenIdent:
		return p.parseLeaf()
	default:
		return filterast.Expr{}, fmt.Errorf("filterdsl: unexpected token %q at position %d", p.current.Value, p.current.Pos)
	}
}

// parseLeaf handles IDENT and IDENT:VALUE forms.
func (p *Parser) parseLeaf() (filterast.Expr, error) {
	name := p.current.Value
	if err := p.advance(); err != nil {
		return filterast.Expr{}, err
	}

	switch name {
	case "is_reply":
		return filterast.Expr{Tag: filterast.TagIsReply}, nil
	case "is_quote":
		return filterast.Expr{Tag: filterast.TagIsQuote}, nil
	case "is_repost":
		return filterast.Expr{Tag: filterast.TagIsRepost}, nil
	case "is_original":
		return filterast.Expr{Tag: filterast.TagIsOriginal}, nil
	case "has_links":
		return filterast.Expr{Tag: filterast.TagHasLinks}, nil
	case "has_media":
		return filterast.Expr{Tag: filterast.TagHasMedia}, nil
	case "has_embed":
		return filterast.Expr{Tag: filterast.TagHasEmbed}, nil
	case "has_images":
		return filterast.Expr{Tag: filterast.TagHasImages}, nil
	case "has_video":
		return filterast.Expr{Tag: filterast.TagHasVideo}, nil
	case "has_alt_text":
		return filterast.Expr{Tag: filterast.TagHasAltText}, nil
	case "no_alt_text":
		return filterast.Expr{Tag: filterast.TagNoAltText}, nil
	case "has_valid_links":
		return filterast.Expr{Tag: filterast.TagHasValidLinks, OnErrorPolicy: filterast.OnErrorExclude}, nil
	case "all":
		return filterast.All(), nil
	case "none":
		return filterast.None(), nil
	}

	if p.current.Type != TokenColon {
		return filterast.Expr{}, fmt.Errorf("filterdsl: unknown bare keyword %q at position %d", name, p.current.Pos)
	}
	if err := p.advance(); err != nil {
		return filterast.Expr{}, err
	}
	value := p.current.Value
	valTok := p.current
	if err := p.advance(); err != nil {
		return filterast.Expr{}, err
	}

	switch name {
	case "author":
		return filterast.Expr{Tag: filterast.TagAuthor, Author: value}, nil
	case "hashtag":
		return filterast.Expr{Tag: filterast.TagHashtag, Hashtag: value}, nil
	case "contains":
		return filterast.Expr{Tag: filterast.TagContains, Text: value, CaseSensitive: false}, nil
	case "contains_cs":
		return filterast.Expr{Tag: filterast.TagContains, Text: value, CaseSensitive: true}, nil
	case "alt_text":
		return filterast.Expr{Tag: filterast.TagAltText, Text: value}, nil
	case "lang":
		return filterast.Expr{Tag: filterast.TagLanguage, Langs: []string{value}}, nil
	case "min_images":
		n, err := strconv.Atoi(value)
		if err != nil {
			return filterast.Expr{}, fmt.Errorf("filterdsl: min_images expects an integer at position %d: %w", valTok.Pos, err)
		}
		return filterast.Expr{Tag: filterast.TagMinImages, N: n}, nil
	case "min_likes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return filterast.Expr{}, fmt.Errorf("filterdsl: min_likes expects an integer at position %d: %w", valTok.Pos, err)
		}
		return filterast.Expr{Tag: filterast.TagEngagement, MinLikes: &n}, nil
	case "min_reposts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return filterast.Expr{}, fmt.Errorf("filterdsl: min_reposts expects an integer at position %d: %w", valTok.Pos, err)
		}
		return filterast.Expr{Tag: filterast.TagEngagement, MinReposts: &n}, nil
	case "min_replies":
		n, err := strconv.Atoi(value)
		if err != nil {
			return filterast.Expr{}, fmt.Errorf("filterdsl: min_replies expects an integer at position %d: %w", valTok.Pos, err)
		}
		return filterast.Expr{Tag: filterast.TagEngagement, MinReplies: &n}, nil
	case "since":
		return filterast.Expr{Tag: filterast.TagDateRange, Start: value}, nil
	case "until":
		return filterast.Expr{Tag: filterast.TagDateRange, End: value}, nil
	case "regex":
		return filterast.Expr{Tag: filterast.TagRegex, Text: value, OnErrorPolicy: filterast.OnErrorExclude}, nil
	case "trending":
		return filterast.Expr{Tag: filterast.TagTrending, Tag_: value, OnErrorPolicy: filterast.OnErrorExclude}, nil
	case "llm":
		return filterast.Expr{Tag: filterast.TagLlm, Prompt: value, OnErrorPolicy: filterast.OnErrorExclude}, nil
	default:
		return filterast.Expr{}, fmt.Errorf("filterdsl: unknown field %q at position %d", name, p.current.Pos)
	}
}
