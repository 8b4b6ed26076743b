package parser

import (
	"bufio"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"pdfchat-quiz/internal/models"
)

// UnmarkedPolicy decides what happens to a question whose options carry no
// (or more than one) correct-answer marker.
type UnmarkedPolicy string

const (
	// UnmarkedReject drops the question.
	UnmarkedReject UnmarkedPolicy = "reject"
	// UnmarkedRandom keeps the question and picks the correct option at random.
	UnmarkedRandom UnmarkedPolicy = "random"
)

// DroppedBlock records a question block that did not survive parsing.
type DroppedBlock struct {
	Number int    `json:"number"`
	Reason string `json:"reason"`
}

type QuizParseResult struct {
	Questions []models.QuizQuestion `json:"questions"`
	Dropped   []DroppedBlock        `json:"dropped"`
}

// TemplateQuizParser reads the plain text question template:
//
//	Q1: question
//	A) option
//	B) *correct option
//	C) option
//	D) option
//
// Blocks are separated by blank lines. Lines that do not start a question
// or an option continue the previous field.
type TemplateQuizParser struct {
	policy     UnmarkedPolicy
	rng        *rand.Rand
	questionRe *regexp.Regexp
	optionRe   *regexp.Regexp
}

// NewTemplateQuizParser creates a parser. rng is only used by UnmarkedRandom
// and may be nil, in which case a randomly seeded source is used.
func NewTemplateQuizParser(policy UnmarkedPolicy, rng *rand.Rand) *TemplateQuizParser {
	if policy == "" {
		policy = UnmarkedReject
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &TemplateQuizParser{
		policy:     policy,
		rng:        rng,
		questionRe: regexp.MustCompile(models.QuizQuestionRegex),
		optionRe:   regexp.MustCompile(models.QuizOptionRegex),
	}
}

type quizBlock struct {
	number   int
	question string
	options  []string
	// set when a line breaks the template, e.g. options out of order
	broken string
}

type quizParserState struct {
	current *quizBlock
	blocks  []*quizBlock
}

func (p *TemplateQuizParser) Parse(raw string) QuizParseResult {
	var state quizParserState

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			state.closeBlock()
			continue
		}
		p.processQuizLine(line, &state)
	}
	state.closeBlock()

	var result QuizParseResult
	for _, block := range state.blocks {
		q, reason := p.validateBlock(block)
		if reason != "" {
			log.Warn().Int("question", block.number).Str("reason", reason).Msg("Dropping malformed quiz block")
			result.Dropped = append(result.Dropped, DroppedBlock{Number: block.number, Reason: reason})
			continue
		}
		result.Questions = append(result.Questions, q)
	}
	return result
}

// processQuizLine handles a single non-blank line, updating the parser state
func (p *TemplateQuizParser) processQuizLine(line string, state *quizParserState) {
	if m := p.questionRe.FindStringSubmatch(line); m != nil {
		state.closeBlock()
		n, _ := strconv.Atoi(m[1])
		state.current = &quizBlock{number: n, question: strings.TrimSpace(m[2])}
		return
	}
	block := state.current
	if block == nil {
		// preamble or commentary outside a question block
		return
	}
	if m := p.optionRe.FindStringSubmatch(line); m != nil {
		want := string(rune('A' + len(block.options)))
		if m[1] != want && block.broken == "" {
			block.broken = "option " + m[1] + ") out of order, expected " + want + ")"
		}
		block.options = append(block.options, strings.TrimSpace(m[2]))
		return
	}
	// continuation of the question text or of the last option
	if len(block.options) == 0 {
		block.question = joinLine(block.question, line)
	} else {
		last := len(block.options) - 1
		block.options[last] = joinLine(block.options[last], line)
	}
}

func (s *quizParserState) closeBlock() {
	if s.current != nil {
		s.blocks = append(s.blocks, s.current)
		s.current = nil
	}
}

func (p *TemplateQuizParser) validateBlock(block *quizBlock) (models.QuizQuestion, string) {
	var q models.QuizQuestion
	switch {
	case block.broken != "":
		return q, block.broken
	case block.question == "":
		return q, "empty question text"
	case len(block.options) != models.OptionCount:
		return q, "expected 4 options, got " + strconv.Itoa(len(block.options))
	}

	q.Question = block.question
	q.CorrectIndex = -1
	marked := 0
	for i, option := range block.options {
		if strings.HasPrefix(option, models.CorrectMarker) {
			option = strings.TrimSpace(strings.TrimPrefix(option, models.CorrectMarker))
			if marked == 0 {
				q.CorrectIndex = i
			}
			marked++
		}
		if option == "" {
			return q, "empty option " + string(rune('A'+i))
		}
		q.Options[i] = option
	}

	switch {
	case marked == 1:
		return q, ""
	case p.policy == UnmarkedRandom && marked == 0:
		q.CorrectIndex = p.rng.IntN(models.OptionCount)
		log.Warn().Int("question", block.number).Int("correct_index", q.CorrectIndex).Msg("No correct answer marked, picked one at random")
		return q, ""
	case p.policy == UnmarkedRandom:
		return q, ""
	case marked == 0:
		return q, "no option marked correct"
	default:
		return q, "more than one option marked correct"
	}
}

func joinLine(field, line string) string {
	if field == "" {
		return line
	}
	return field + " " + line
}
