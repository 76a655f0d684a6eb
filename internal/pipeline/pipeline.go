// File path: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nicodishanthj/Katral_insight/internal/answer"
	"github.com/nicodishanthj/Katral_insight/internal/common"
	"github.com/nicodishanthj/Katral_insight/internal/common/telemetry"
	"github.com/nicodishanthj/Katral_insight/internal/conversation"
	"github.com/nicodishanthj/Katral_insight/internal/history"
	"github.com/nicodishanthj/Katral_insight/internal/intent"
	"github.com/nicodishanthj/Katral_insight/internal/kb/model"
	"github.com/nicodishanthj/Katral_insight/internal/sqlgen"
)

// SQLSeparator joins the queries of a multi-question answer.
const SQLSeparator = "\n\n-- next query --\n\n"

const (
	defaultTopK = 5

	execFailureFormat = "I encountered an error executing the query: %s. Please try rephrasing your question."
	apologyFormat     = "I apologize, but I encountered an error processing your question. Please try again or rephrase your question. Error: %s"
	subFailureFormat  = "I couldn't answer this part: %s"
	noQueryAnswer     = "I couldn't turn that question into a query. Please try rephrasing it with the metric or table you are interested in."
)

// Retriever supplies the formatted knowledge context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (string, error)
}

// Executor runs a read-only query.
type Executor interface {
	Execute(ctx context.Context, query string) ([]model.Row, error)
}

// Responder produces the templated reply for conversational text.
type Responder interface {
	Reply(c intent.Classification) string
}

// Result is the outcome of one processed question.
type Result struct {
	RefinedQuestion string      `json:"refined_question"`
	SQL             string      `json:"sql,omitempty"`
	Table           []model.Row `json:"table"`
	FinalAnswer     string      `json:"final_answer"`
	ConversationID  string      `json:"conversation_id"`
}

// Components are the collaborators every pipeline needs.
type Components struct {
	Conversations conversation.Store
	Retriever     Retriever
	Generator     sqlgen.Generator
	Executor      Executor
	Composer      answer.Composer
}

// Pipeline routes each question through classification and either a
// templated reply, the multi-question path or the data query path, and
// records both sides of the exchange.
type Pipeline struct {
	conversations conversation.Store
	retriever     Retriever
	generator     sqlgen.Generator
	executor      Executor
	composer      answer.Composer
	responder     Responder
	history       history.Recorder
	topK          int
	logger        *slog.Logger
}

func New(c Components, opts ...Option) (*Pipeline, error) {
	switch {
	case c.Conversations == nil:
		return nil, errors.New("pipeline: conversation store required")
	case c.Retriever == nil:
		return nil, errors.New("pipeline: retriever required")
	case c.Generator == nil:
		return nil, errors.New("pipeline: sql generator required")
	case c.Executor == nil:
		return nil, errors.New("pipeline: executor required")
	case c.Composer == nil:
		return nil, errors.New("pipeline: answer composer required")
	}
	p := &Pipeline{
		conversations: c.Conversations,
		retriever:     c.Retriever,
		generator:     c.Generator,
		executor:      c.Executor,
		composer:      c.Composer,
		responder:     intent.NewResponder(nil),
		topK:          defaultTopK,
		logger:        common.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Conversations exposes the store backing the pipeline.
func (p *Pipeline) Conversations() conversation.Store {
	return p.conversations
}

// outcome is the answer to one (sub-)question before it is recorded.
type outcome struct {
	refined string
	sql     string
	rows    []model.Row
	answer  string
}

// Process answers question within conversationID, creating the conversation
// when the id is empty or unknown. When the data path fails unexpectedly the
// apology is still recorded as the assistant message and the error is
// returned together with that result.
func (p *Pipeline) Process(ctx context.Context, question, conversationID string) (Result, error) {
	ctx, end := telemetry.StartSpan(ctx, "pipeline.process")
	question = strings.TrimSpace(question)

	id, created, err := p.conversations.GetOrCreate(ctx, conversationID)
	if err != nil {
		end("error", err)
		return Result{}, fmt.Errorf("open conversation: %w", err)
	}
	p.touchSession(ctx, id, question, created)
	if err := p.record(ctx, id, model.NewMessage(model.RoleUser, question)); err != nil {
		end("error", err)
		return Result{}, err
	}

	classification := intent.Classify(question)
	telemetry.RecordPipelineRun(classification.Kind.String())
	p.logger.Info("pipeline: question classified",
		"conversation_id", id,
		"kind", classification.Kind.String(),
		"subkind", string(classification.Subkind),
	)

	var out outcome
	var runErr error
	switch classification.Kind {
	case intent.KindConversational:
		out = p.reply(question, classification)
	case intent.KindMultiQuestion:
		out = p.multi(ctx, question)
	default:
		out, runErr = p.dataQuery(ctx, question)
	}
	if runErr != nil {
		p.logger.Error("pipeline: question failed", "conversation_id", id, "error", runErr)
		out = outcome{refined: question, rows: []model.Row{}, answer: fmt.Sprintf(apologyFormat, runErr)}
	}

	reply := model.NewMessage(model.RoleAssistant, out.answer)
	reply.SQL = out.sql
	reply.Rows = out.rows
	reply.RefinedQuestion = out.refined
	if err := p.record(ctx, id, reply); err != nil {
		end("error", err)
		return Result{}, errors.Join(runErr, err)
	}

	result := Result{
		RefinedQuestion: out.refined,
		SQL:             out.sql,
		Table:           out.rows,
		FinalAnswer:     out.answer,
		ConversationID:  id,
	}
	if result.Table == nil {
		result.Table = []model.Row{}
	}
	end("kind", classification.Kind.String(), "rows", len(result.Table))
	return result, runErr
}

func (p *Pipeline) reply(question string, c intent.Classification) outcome {
	return outcome{refined: question, rows: []model.Row{}, answer: p.responder.Reply(c)}
}

// single answers one sub-question using the single-question classifier.
func (p *Pipeline) single(ctx context.Context, question string) (outcome, error) {
	c := intent.ClassifySingle(question)
	if c.Kind == intent.KindConversational {
		return p.reply(question, c), nil
	}
	return p.dataQuery(ctx, question)
}

// multi answers each sub-question in order, one at a time. A failing part is
// reported inside its own section.
func (p *Pipeline) multi(ctx context.Context, question string) outcome {
	parts := intent.Decompose(question)
	p.logger.Debug("pipeline: question decomposed", "parts", len(parts))
	sections := make([]string, 0, len(parts))
	refined := make([]string, 0, len(parts))
	queries := make([]string, 0, len(parts))
	rows := []model.Row{}
	for i, part := range parts {
		out, err := p.single(ctx, part)
		if err != nil {
			p.logger.Warn("pipeline: sub-question failed", "index", i+1, "error", err)
			out = outcome{refined: part, answer: fmt.Sprintf(subFailureFormat, err)}
		}
		sections = append(sections, "**"+strconv.Itoa(i+1)+". "+part+"**\n"+out.answer)
		refined = append(refined, out.refined)
		if out.sql != "" {
			queries = append(queries, out.sql)
		}
		rows = append(rows, out.rows...)
	}
	return outcome{
		refined: strings.Join(refined, "\n"),
		sql:     strings.Join(queries, SQLSeparator),
		rows:    rows,
		answer:  strings.Join(sections, "\n\n"),
	}
}

// dataQuery runs retrieve, generate, execute and compose. Execution failures
// become the answer; retrieval, generation and composition failures are
// returned.
func (p *Pipeline) dataQuery(ctx context.Context, question string) (outcome, error) {
	knowledge, err := p.retriever.Retrieve(ctx, question, p.topK)
	if err != nil {
		return outcome{}, fmt.Errorf("retrieve context: %w", err)
	}
	refined, query, err := p.generator.GenerateSQL(ctx, question, knowledge)
	if err != nil {
		return outcome{}, fmt.Errorf("generate sql: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return outcome{refined: refined, rows: []model.Row{}, answer: noQueryAnswer}, nil
	}
	rows, err := p.executor.Execute(ctx, query)
	if err != nil {
		p.logger.Warn("pipeline: query not executed", "error", err)
		return outcome{
			refined: refined,
			rows:    []model.Row{},
			answer:  fmt.Sprintf(execFailureFormat, err),
		}, nil
	}
	text, err := p.composer.Compose(ctx, refined, rows)
	if err != nil {
		return outcome{}, fmt.Errorf("compose answer: %w", err)
	}
	return outcome{refined: refined, sql: query, rows: rows, answer: text}, nil
}

// touchSession upserts the durable session on every exchange so a session
// removed from history, or one whose first upsert failed, is recreated. The
// title always comes from the conversation's first question.
func (p *Pipeline) touchSession(ctx context.Context, id, question string, created bool) {
	if p.history == nil {
		return
	}
	title := question
	if !created {
		if conv, err := p.conversations.Get(ctx, id); err == nil && len(conv.Messages) > 0 {
			title = conv.Messages[0].Content
		}
	}
	if err := p.history.CreateOrUpdateSession(ctx, id, title); err != nil {
		p.logger.Warn("pipeline: history session not recorded", "conversation_id", id, "error", err)
	}
}

func (p *Pipeline) record(ctx context.Context, id string, msg model.Message) error {
	if err := p.conversations.Append(ctx, id, msg); err != nil {
		return fmt.Errorf("append %s message: %w", msg.Role, err)
	}
	if p.history != nil {
		if err := p.history.SaveMessage(ctx, id, msg); err != nil {
			p.logger.Warn("pipeline: history message not recorded", "conversation_id", id, "role", string(msg.Role), "error", err)
		}
	}
	return nil
}
