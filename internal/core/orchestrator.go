package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fasoagent.bf/assistant/internal/store"
)

var (
	ErrBlankMessage         = errors.New("message is blank")
	ErrTurnInFlight         = errors.New("a turn is already in flight")
	ErrConfirmationRequired = errors.New("confirmation required")
)

const (
	freshSessionTitle = "Nouvelle Discussion"
	imageStageTimeout = 2 * time.Minute
)

// TurnState names the phase of the active turn explicitly, so consumers
// never have to reason about flag combinations like "error with a pending
// image" that the engine rules out.
type TurnState string

const (
	TurnIdle          TurnState = "idle"
	TurnAwaitingReply TurnState = "awaiting_reply"
	TurnAwaitingImage TurnState = "awaiting_image"
	TurnSettled       TurnState = "settled"
	TurnErrorSettled  TurnState = "error_settled"
)

// Snapshot is what the presentation layer renders from: the active
// conversation's identity and message sequence, plus the loading indicator
// that gates the input control.
type Snapshot struct {
	ConversationID string          `json:"conversationId"`
	Title          string          `json:"title"`
	Messages       []store.Message `json:"messages"`
	InFlight       bool            `json:"inFlight"`
	TurnState      TurnState       `json:"turnState"`
}

// Orchestrator drives one user turn through its states: optimistic local
// append, backend call, directive parsing, the conditional image follow-up
// and final persistence, with an error fallback out of the reply stage. It
// also owns which conversation is active; switching swaps the visible
// sequence wholesale.
//
// The in-flight flag spans only the text phase, so an image follow-up may
// still be resolving when a later turn renders. The completion handler
// therefore amends the specific message it was generating for, by identity,
// never "the last message".
type Orchestrator struct {
	ai     AIClient
	store  *store.ConversationStore
	logger *zap.Logger

	mu       sync.Mutex
	inFlight bool
	activeID string // "" means a fresh, unsaved session
	messages []store.Message

	pending sync.WaitGroup
}

func NewOrchestrator(ai AIClient, st *store.ConversationStore, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		ai:     ai,
		store:  st,
		logger: logger,
	}
	o.resetLocked()
	return o
}

// SendMessage runs one full turn. Re-entrant sends while a turn is pending
// are rejected, not queued. The returned snapshot reflects the settled text
// phase; an image follow-up, when directed, resolves in the background.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, ErrBlankMessage
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return Snapshot{}, ErrTurnInFlight
	}
	o.inFlight = true

	if o.activeID == "" {
		// First user message of the session: the seeded welcome message is
		// view-only and is not carried into the persisted conversation.
		o.messages = nil
	}
	userMsg := store.Message{ID: uuid.NewString(), Role: store.RoleUser, Text: text}
	o.messages = append(o.messages, userMsg)
	// Optimistic write: the user's own message survives a backend failure.
	o.saveActiveLocked()
	turnConvID := o.activeID
	o.mu.Unlock()

	result, err := o.ai.SendTurn(ctx, text)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false

	if err != nil {
		o.logger.Error("conversational turn failed", zap.Error(err))
		o.appendReplyLocked(turnConvID, store.Message{
			ID:      uuid.NewString(),
			Role:    store.RoleModel,
			Text:    turnErrorText,
			IsError: true,
		})
		return o.snapshotLocked(), nil
	}

	clean, description, wantImage := ExtractImageDirective(result.Text)
	modelMsg := store.Message{
		ID:                uuid.NewString(),
		Role:              store.RoleModel,
		Text:              clean,
		GroundingSources:  result.Sources,
		IsGeneratingImage: wantImage,
	}
	// Persisted before the image call: a crash or navigation during image
	// generation never loses the text reply.
	o.appendReplyLocked(turnConvID, modelMsg)

	if wantImage {
		o.pending.Add(1)
		go o.runImageStage(turnConvID, modelMsg.ID, description)
	}
	return o.snapshotLocked(), nil
}

// NewChat resets to a fresh, unsaved session seeded with the welcome
// message.
func (o *Orchestrator) NewChat() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
	return o.snapshotLocked()
}

// OpenConversation makes a stored conversation the active one.
func (o *Orchestrator) OpenConversation(id string) (Snapshot, error) {
	conv, ok := o.store.Get(id)
	if !ok {
		return Snapshot{}, store.ErrNotFound
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeID = conv.ID
	o.messages = conv.Messages
	return o.snapshotLocked(), nil
}

// DeleteConversation removes one conversation; deleting the active one
// resets to a fresh session.
func (o *Orchestrator) DeleteConversation(id string) error {
	if err := o.store.Delete(id); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.activeID == id {
		o.resetLocked()
	}
	return nil
}

// ClearAll wipes the whole history. The confirmation flag is the API
// equivalent of the UI's "are you sure" prompt.
func (o *Orchestrator) ClearAll(confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	if err := o.store.Clear(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// WaitPending blocks until outstanding image follow-ups have settled. Used
// on shutdown and by tests.
func (o *Orchestrator) WaitPending() {
	o.pending.Wait()
}

func (o *Orchestrator) runImageStage(convID, msgID, description string) {
	defer o.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), imageStageTimeout)
	defer cancel()

	imageURL, err := o.ai.SynthesizeImage(ctx, description)
	if err != nil {
		// An absent image degrades silently; only the pending flag changes.
		o.logger.Warn("image synthesis failed", zap.String("message_id", msgID), zap.Error(err))
		imageURL = ""
	}
	o.finishImageStage(convID, msgID, imageURL)
}

// finishImageStage amends the message the image was generated for, keyed by
// identity. It tolerates the conversation having been deleted or swapped out
// while the synthesis ran.
func (o *Orchestrator) finishImageStage(convID, msgID, imageURL string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conv, err := o.store.AmendMessage(convID, msgID, func(m *store.Message) {
		m.IsGeneratingImage = false
		if imageURL != "" {
			m.GeneratedImageURL = imageURL
		}
	})
	if err != nil {
		o.logger.Debug("dropping image result for vanished message",
			zap.String("conversation_id", convID), zap.String("message_id", msgID), zap.Error(err))
		return
	}
	if o.activeID == convID {
		o.messages = conv.Messages
	}
}

// appendReplyLocked persists a model reply into the turn's conversation by
// id. The active view is refreshed only when it is still showing that
// conversation; a reply for a conversation deleted mid-flight is dropped.
func (o *Orchestrator) appendReplyLocked(turnConvID string, msg store.Message) {
	if turnConvID == "" {
		// The optimistic save failed earlier; keep the turn visible at least.
		o.messages = append(o.messages, msg)
		o.saveActiveLocked()
		return
	}

	if o.activeID == turnConvID {
		o.messages = append(o.messages, msg)
		o.saveActiveLocked()
		return
	}

	conv, ok := o.store.Get(turnConvID)
	if !ok {
		o.logger.Warn("dropping reply for deleted conversation", zap.String("conversation_id", turnConvID))
		return
	}
	conv.Messages = append(conv.Messages, msg)
	if _, err := o.store.Save(conv); err != nil {
		o.logger.Error("failed to persist reply", zap.String("conversation_id", turnConvID), zap.Error(err))
	}
}

// saveActiveLocked mirrors the active message sequence into the store,
// creating the conversation lazily on the first user message.
func (o *Orchestrator) saveActiveLocked() {
	saved, err := o.store.Save(store.Conversation{
		ID:       o.activeID,
		Messages: append([]store.Message(nil), o.messages...),
	})
	if err != nil {
		if errors.Is(err, store.ErrNoUserMessage) {
			return // nothing to persist yet
		}
		o.logger.Error("failed to persist conversation", zap.Error(err))
		return
	}
	o.activeID = saved.ID
}

func (o *Orchestrator) resetLocked() {
	o.activeID = ""
	o.messages = []store.Message{{
		ID:   uuid.NewString(),
		Role: store.RoleModel,
		Text: welcomeText,
	}}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	title := freshSessionTitle
	if o.activeID != "" {
		if conv, ok := o.store.Get(o.activeID); ok {
			title = conv.Title
		}
	}
	return Snapshot{
		ConversationID: o.activeID,
		Title:          title,
		Messages:       append([]store.Message(nil), o.messages...),
		InFlight:       o.inFlight,
		TurnState:      o.turnStateLocked(),
	}
}

func (o *Orchestrator) turnStateLocked() TurnState {
	if o.inFlight {
		return TurnAwaitingReply
	}
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].IsGeneratingImage {
			return TurnAwaitingImage
		}
	}
	if o.activeID == "" {
		return TurnIdle
	}
	if last := o.messages[len(o.messages)-1]; last.IsError {
		return TurnErrorSettled
	}
	return TurnSettled
}
