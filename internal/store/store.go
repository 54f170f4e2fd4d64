// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/api"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/reveal"
)

// DefaultTimeout bounds every backend call issued by the store.
const DefaultTimeout = 30 * time.Second

// Backend is the subset of the REST API the store uses.
type Backend interface {
	ListConversations(ctx context.Context) (*api.ConversationList, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	SendChat(ctx context.Context, content string, conversationID *string) (*api.ChatResponse, error)
	RenameConversation(ctx context.Context, conversationID, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Options configures a Store. Zero values select defaults.
type Options struct {
	Timeout        time.Duration
	RevealChunk    int
	RevealInterval time.Duration

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Entry is one transcript row. Partial marks a reply still being revealed;
// its Content is the prefix shown so far.
type Entry struct {
	model.Message
	Partial bool
}

// =============================================================================
// STORE
// =============================================================================

// Store is the conversation state of one UI session.
// It is not safe for concurrent use; call it from the Bubble Tea Update loop.
type Store struct {
	backend Backend
	timeout time.Duration
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	gen    int

	conversations []model.Conversation
	active        model.ConversationID
	messages      []model.Message

	// Stale-response guards.
	selectSeq    int
	selecting    bool
	draftSeq     int
	draftSending bool
	draftFlight  int

	sending  int
	loading  bool
	lastTemp time.Time

	pendingDelete string
	deleting      bool

	animator *reveal.Animator
	pending  *model.Message
	after    string
	partial  string

	err *OpError
}

// New creates a store backed by backend.
func New(backend Backend, opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		backend:  backend,
		timeout:  opts.Timeout,
		now:      opts.Now,
		ctx:      ctx,
		cancel:   cancel,
		animator: reveal.New(opts.RevealChunk, opts.RevealInterval),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversations returns a copy of the conversation list, most recent first.
func (s *Store) Conversations() []model.Conversation {
	out := make([]model.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Conversation returns the conversation with id.
func (s *Store) Conversation(id string) (model.Conversation, bool) {
	if i := model.IndexOf(s.conversations, id); i >= 0 {
		return s.conversations[i], true
	}
	return model.Conversation{}, false
}

// Active returns the active selection.
func (s *Store) Active() model.ConversationID {
	return s.active
}

// Messages returns a copy of the committed transcript.
func (s *Store) Messages() []model.Message {
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript returns the committed messages followed by the reply being
// revealed, if any.
func (s *Store) Transcript() []Entry {
	out := make([]Entry, 0, len(s.messages)+1)
	for _, m := range s.messages {
		out = append(out, Entry{Message: m})
	}
	if s.pending != nil && s.active.Is(s.pending.ConversationID) {
		m := *s.pending
		m.Content = s.partial
		out = append(out, Entry{Message: m, Partial: true})
	}
	return out
}

// Revealing reports whether a reply is being revealed.
func (s *Store) Revealing() bool {
	return s.pending != nil
}

// RevealProgress returns how many runes of the revealing reply are shown,
// and its length. Both are zero when nothing is being revealed.
func (s *Store) RevealProgress() (shown, total int) {
	if s.pending == nil {
		return 0, 0
	}
	return s.animator.Progress()
}

// Busy reports whether any backend call is in flight.
func (s *Store) Busy() bool {
	return s.loading || s.selecting || s.deleting || s.sending > 0
}

// Sending reports whether a send is in flight.
func (s *Store) Sending() bool {
	return s.sending > 0
}

// PendingDelete returns the id awaiting delete confirmation, or "".
func (s *Store) PendingDelete() string {
	return s.pendingDelete
}

// Err returns the error of the last operation, or nil.
func (s *Store) Err() *OpError {
	return s.err
}

// ClearErr dismisses the last error.
func (s *Store) ClearErr() {
	s.err = nil
}

// Consistent reports whether the active selection is None, Draft, or an id
// in the conversation list.
func (s *Store) Consistent() bool {
	id, ok := s.active.Value()
	if !ok {
		return true
	}
	return model.IndexOf(s.conversations, id) >= 0
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load fetches the conversation list and any initial selection.
func (s *Store) Load() tea.Cmd {
	s.err = nil
	s.loading = true
	gen, ctx, backend, timeout := s.gen, s.ctx, s.backend, s.timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		list, err := backend.ListConversations(ctx)
		return LoadedMsg{gen: gen, List: list, Err: err}
	}
}

// Reset clears all state. In-flight responses from before the reset are dropped.
func (s *Store) Reset() {
	s.cancel()
	s.dropReveal()

	ctx, cancel := context.WithCancel(context.Background())
	*s = Store{
		backend:  s.backend,
		timeout:  s.timeout,
		now:      s.now,
		ctx:      ctx,
		cancel:   cancel,
		gen:      s.gen + 1,
		animator: s.animator,
	}
}

// Close cancels the running reveal and any in-flight calls.
func (s *Store) Close() {
	s.dropReveal()
	s.cancel()
}

// Update applies a result message. It returns follow-up commands, such as
// reveal ticks or the fetch for a new selection.
func (s *Store) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LoadedMsg:
		return s.applyLoaded(msg)
	case SelectedMsg:
		s.applySelected(msg)
	case SentMsg:
		return s.applySent(msg)
	case RenamedMsg:
		s.applyRenamed(msg)
	case DeletedMsg:
		return s.applyDeleted(msg)
	case reveal.TickMsg:
		return s.animator.Update(msg)
	}
	return nil
}

func (s *Store) applyLoaded(msg LoadedMsg) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	s.loading = false
	if msg.Err != nil {
		s.fail(classify(OpLoad, msg.Err))
		return nil
	}

	list := msg.List
	if list == nil {
		list = &api.ConversationList{}
	}
	convs := make([]model.Conversation, len(list.Conversations))
	copy(convs, list.Conversations)
	model.SortByRecency(convs)
	s.conversations = convs

	if id, ok := s.active.Value(); ok && model.IndexOf(convs, id) < 0 {
		s.active = model.None
		s.messages = nil
		s.dropReveal()
	}

	if !s.active.IsNone() || len(convs) == 0 {
		return nil
	}
	initial := list.ActiveConversationID
	if initial == "" || model.IndexOf(convs, initial) < 0 {
		// Open the most recent conversation.
		return s.Select(model.Persisted(convs[0].ID))
	}
	if list.Messages != nil {
		s.selectSeq++
		s.active = model.Persisted(initial)
		s.messages = append([]model.Message(nil), list.Messages...)
		return nil
	}
	return s.Select(model.Persisted(initial))
}

// =============================================================================
// SELECTION
// =============================================================================

// Select makes id the active conversation. A persisted id fetches its
// messages; the selection changes only when that fetch succeeds and no newer
// selection has been issued since.
func (s *Store) Select(id model.ConversationID) tea.Cmd {
	if id.IsDraft() {
		s.SelectDraft()
		return nil
	}
	convID, ok := id.Value()
	if !ok {
		s.fail(invalid(OpSelect, ErrUnknownConversation))
		return nil
	}
	if model.IndexOf(s.conversations, convID) < 0 {
		s.fail(invalid(OpSelect, ErrUnknownConversation))
		return nil
	}

	s.err = nil
	s.flushReveal()
	s.selectSeq++
	s.selecting = true
	seq, gen, ctx, backend, timeout := s.selectSeq, s.gen, s.ctx, s.backend, s.timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		msgs, err := backend.ListMessages(ctx, convID)
		return SelectedMsg{gen: gen, seq: seq, ID: convID, Messages: msgs, Err: err}
	}
}

// SelectDraft makes the draft conversation active and clears the transcript.
// While the draft's first send is in flight its optimistic row is kept.
func (s *Store) SelectDraft() {
	if s.active.IsDraft() && s.draftSending && s.draftFlight == s.draftSeq {
		return
	}
	s.Create()
}

// Create starts a new unsaved conversation. No network call is made.
func (s *Store) Create() {
	s.err = nil
	s.dropReveal()
	s.selectSeq++
	s.selecting = false
	s.draftSeq++
	s.active = model.Draft
	s.messages = nil
}

func (s *Store) applySelected(msg SelectedMsg) {
	if msg.gen != s.gen || msg.seq != s.selectSeq {
		logging.Debug().Str("conversation", msg.ID).Msg("dropping stale message fetch")
		return
	}
	s.selecting = false
	if msg.Err != nil {
		s.fail(classify(OpSelect, msg.Err))
		return
	}
	if model.IndexOf(s.conversations, msg.ID) < 0 {
		return
	}

	if s.pending != nil && s.pending.ConversationID != msg.ID {
		s.dropReveal()
	}
	s.active = model.Persisted(msg.ID)
	s.messages = append([]model.Message(nil), msg.Messages...)
	if s.pending != nil && model.IndexOfMessage(s.messages, s.pending.ID) >= 0 {
		s.dropReveal()
	}
}

// =============================================================================
// RENAME
// =============================================================================

// Rename sets the title of conversation id. The local title changes only
// after the backend acknowledges; a blank title is rejected without a call.
func (s *Store) Rename(id, title string) tea.Cmd {
	title = model.NormalizeTitle(title)
	if title == "" {
		s.fail(invalid(OpRename, ErrEmptyTitle))
		return nil
	}
	if model.IndexOf(s.conversations, id) < 0 {
		s.fail(invalid(OpRename, ErrUnknownConversation))
		return nil
	}

	s.err = nil
	gen, ctx, backend, timeout := s.gen, s.ctx, s.backend, s.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		conv, err := backend.RenameConversation(ctx, id, title)
		if err == nil && conv != nil && conv.Title == "" {
			conv.Title = title
		}
		return RenamedMsg{gen: gen, ID: id, Conversation: conv, Err: err}
	}
}

func (s *Store) applyRenamed(msg RenamedMsg) {
	if msg.gen != s.gen {
		return
	}
	if msg.Err != nil {
		s.fail(classify(OpRename, msg.Err))
		return
	}
	i := model.IndexOf(s.conversations, msg.ID)
	if i < 0 || msg.Conversation == nil {
		return
	}
	s.conversations[i].Title = msg.Conversation.Title
}

// =============================================================================
// DELETE
// =============================================================================

// RequestDelete marks id for deletion pending confirmation.
func (s *Store) RequestDelete(id string) error {
	if model.IndexOf(s.conversations, id) < 0 {
		err := invalid(OpDelete, ErrUnknownConversation)
		s.fail(err)
		return err
	}
	s.err = nil
	s.pendingDelete = id
	return nil
}

// CancelDelete abandons a pending delete.
func (s *Store) CancelDelete() {
	s.pendingDelete = ""
}

// ConfirmDelete deletes the conversation marked by RequestDelete.
func (s *Store) ConfirmDelete() tea.Cmd {
	id := s.pendingDelete
	if id == "" {
		s.fail(invalid(OpDelete, ErrNoPendingDelete))
		return nil
	}
	s.pendingDelete = ""
	s.err = nil
	s.deleting = true

	gen, ctx, backend, timeout := s.gen, s.ctx, s.backend, s.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return DeletedMsg{gen: gen, ID: id, Err: backend.DeleteConversation(ctx, id)}
	}
}

func (s *Store) applyDeleted(msg DeletedMsg) tea.Cmd {
	if msg.gen != s.gen {
		return nil
	}
	s.deleting = false
	if msg.Err != nil {
		s.fail(classify(OpDelete, msg.Err))
		return nil
	}

	i := model.IndexOf(s.conversations, msg.ID)
	if i < 0 {
		return nil
	}
	s.conversations = append(s.conversations[:i:i], s.conversations[i+1:]...)

	if !s.active.Is(msg.ID) {
		return nil
	}
	s.dropReveal()
	s.selectSeq++
	s.selecting = false
	s.active = model.None
	s.messages = nil
	if len(s.conversations) == 0 {
		return nil
	}
	return s.Select(model.Persisted(s.conversations[0].ID))
}

// =============================================================================
// RECENCY
// =============================================================================

// Touch records that conversation id was updated at the given time and
// re-sorts the list by recency.
func (s *Store) Touch(id string, at time.Time) {
	i := model.IndexOf(s.conversations, id)
	if i < 0 {
		return
	}
	s.conversations[i].UpdatedAt = at
	model.SortByRecency(s.conversations)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) fail(err *OpError) {
	s.err = err
	ev := logging.Warn()
	if err.Kind == KindValidation {
		ev = logging.Debug()
	}
	ev.Str("op", string(err.Op)).Str("kind", err.Kind.String()).Err(err.Err).Msg("store operation failed")
}
