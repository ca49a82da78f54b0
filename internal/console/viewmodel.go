// Package console holds the operator-facing state machines: the
// conversation list/detail viewmodel and the service-order form. Both are
// transport-agnostic; network access is injected.
package console

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
)

// DefaultPageSize is the message window fetched per detail request.
const DefaultPageSize = 50

var (
	// ErrNoSelection reports an operation that needs a selected conversation.
	ErrNoSelection = errors.New("no conversation selected")
	// ErrEmptyMessage reports a text send whose trimmed content is empty.
	ErrEmptyMessage = errors.New("message is empty")
)

// API is the slice of the server client the viewmodel needs.
type API interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	GetConversation(ctx context.Context, userID string, limit, offset int) (model.ConversationPage, error)
	SendMessage(ctx context.Context, userID string, req model.SendRequest) (model.Conversation, error)
	MarkRead(ctx context.Context, userID string) error
}

// detail is the state of the currently opened conversation.
type detail struct {
	userID      string
	page        model.ConversationPage
	loaded      bool // first page has arrived
	loadingMore bool
}

// ConversationViewModel reconciles three sources into one consistent
// view: the bootstrap list fetch, the push channel, and the
// selection-triggered page fetches. The list is always ordered by
// lastTimestamp descending; entries with equal timestamps keep their
// relative order.
type ConversationViewModel struct {
	api API
	log *logger.Logger

	mu           sync.Mutex
	list         []model.Conversation
	bootstrapped bool
	loadingList  bool
	selected     *detail

	// generation increments on every selection change. A fetch started
	// under an older generation is discarded when it resolves.
	generation uint64
}

// NewConversationViewModel creates a viewmodel backed by the given API.
func NewConversationViewModel(api API, log *logger.Logger) *ConversationViewModel {
	if log == nil {
		log = logger.NewNop()
	}
	return &ConversationViewModel{api: api, log: log}
}

// Bootstrap fetches the full conversation list once at startup. Until it
// returns, Loading reports true so the UI can distinguish "loading" from
// "no conversations".
func (vm *ConversationViewModel) Bootstrap(ctx context.Context) error {
	vm.mu.Lock()
	vm.loadingList = true
	vm.mu.Unlock()

	list, err := vm.api.ListConversations(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.loadingList = false
	if err != nil {
		return err
	}
	vm.replaceList(list)
	vm.bootstrapped = true
	return nil
}

// ApplySnapshot replaces the list wholesale with a push-channel snapshot.
func (vm *ConversationViewModel) ApplySnapshot(conversations []model.Conversation) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.replaceList(conversations)
	vm.bootstrapped = true
}

// ApplyUpdate merges a single-conversation push event: any existing entry
// with the same userId is removed and the new state is prepended, which
// keeps most-recently-active ordering. Applying the same update twice
// leaves the list unchanged. When the update concerns the selected
// conversation the detail view is replaced with the pushed state.
func (vm *ConversationViewModel) ApplyUpdate(update model.ConversationUpdate) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	conv := update.Conversation
	if conv.UserID == "" {
		conv.UserID = update.UserID
	}

	merged := make([]model.Conversation, 0, len(vm.list)+1)
	merged = append(merged, summarize(conv))
	for _, existing := range vm.list {
		if existing.UserID != conv.UserID {
			merged = append(merged, existing)
		}
	}
	vm.list = merged
	vm.sortList()

	if vm.selected != nil && vm.selected.userID == conv.UserID {
		vm.selected.page = model.ConversationPage{
			Conversation:  conv,
			HasMore:       false,
			TotalMessages: len(conv.Messages),
		}
		vm.selected.loaded = true
	}
}

// Select opens a conversation: the most recent page of messages is
// fetched, the detail view replaced, and the entry's unread counter reset
// locally. The server-side counter is cleared best-effort; the next
// snapshot reconciles either way. A Select that resolves after a newer
// Select has started is discarded.
func (vm *ConversationViewModel) Select(ctx context.Context, userID string) error {
	vm.mu.Lock()
	vm.generation++
	gen := vm.generation
	vm.selected = &detail{userID: userID}
	for i := range vm.list {
		if vm.list[i].UserID == userID {
			vm.list[i].Unread = 0
			break
		}
	}
	vm.mu.Unlock()

	if err := vm.api.MarkRead(ctx, userID); err != nil {
		vm.log.Warn("mark read", zap.String("user_id", userID), zap.Error(err))
	}

	page, err := vm.api.GetConversation(ctx, userID, DefaultPageSize, 0)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.generation != gen {
		return nil // superseded by a newer selection
	}
	if err != nil {
		return err
	}
	vm.selected.page = page
	vm.selected.loaded = true
	return nil
}

// LoadMore fetches the page of messages older than the ones already
// loaded and prepends it. No-op when nothing is selected, the first page
// has not arrived, a load is already running, or no more pages exist.
func (vm *ConversationViewModel) LoadMore(ctx context.Context) error {
	vm.mu.Lock()
	sel := vm.selected
	if sel == nil || !sel.loaded || sel.loadingMore || !sel.page.HasMore {
		vm.mu.Unlock()
		return nil
	}
	gen := vm.generation
	offset := len(sel.page.Messages)
	sel.loadingMore = true
	userID := sel.userID
	vm.mu.Unlock()

	page, err := vm.api.GetConversation(ctx, userID, DefaultPageSize, offset)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	sel.loadingMore = false
	if vm.generation != gen {
		return nil // selection changed while the fetch was in flight
	}
	if err != nil {
		return err
	}

	older := page.Messages
	sel.page.Messages = append(append([]model.Message{}, older...), sel.page.Messages...)
	sel.page.HasMore = page.HasMore
	sel.page.TotalMessages = page.TotalMessages
	return nil
}

// Send validates and delivers an outbound message to the selected
// conversation. Validation failures never reach the network. The sent
// message is not injected locally; the push channel echoes it back once
// the server has appended it.
func (vm *ConversationViewModel) Send(ctx context.Context, req model.SendRequest) error {
	vm.mu.Lock()
	sel := vm.selected
	vm.mu.Unlock()
	if sel == nil {
		return ErrNoSelection
	}

	if req.Type == "" {
		req.Type = model.MessageTypeText
	}
	if req.Message == "" {
		return ErrEmptyMessage
	}
	if req.Type == model.MessageTypeText && strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}

	_, err := vm.api.SendMessage(ctx, sel.userID, req)
	return err
}

// Conversations returns a copy of the current list, newest first.
func (vm *ConversationViewModel) Conversations() []model.Conversation {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]model.Conversation, len(vm.list))
	copy(out, vm.list)
	return out
}

// Loading reports whether the initial list fetch is still in flight.
func (vm *ConversationViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loadingList && !vm.bootstrapped
}

// Selected returns the detail view of the open conversation. ok is false
// when nothing is selected or the first page has not arrived yet.
func (vm *ConversationViewModel) Selected() (model.ConversationPage, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.selected == nil || !vm.selected.loaded {
		return model.ConversationPage{}, false
	}
	page := vm.selected.page
	page.Messages = append([]model.Message{}, page.Messages...)
	return page, true
}

// LoadingMore reports whether an older-page fetch is in flight.
func (vm *ConversationViewModel) LoadingMore() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.selected != nil && vm.selected.loadingMore
}

// replaceList installs a new list, sorted newest first. Callers hold vm.mu.
func (vm *ConversationViewModel) replaceList(conversations []model.Conversation) {
	vm.list = make([]model.Conversation, len(conversations))
	for i, conv := range conversations {
		vm.list[i] = summarize(conv)
	}
	vm.sortList()
}

func (vm *ConversationViewModel) sortList() {
	sort.SliceStable(vm.list, func(i, j int) bool {
		return vm.list[i].LastTimestamp.After(vm.list[j].LastTimestamp)
	})
}

// summarize strips message bodies from a conversation for the list view.
func summarize(conv model.Conversation) model.Conversation {
	conv.Messages = nil
	return conv
}
