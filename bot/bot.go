// Package bot routes Telegram updates to the catalog, the selection codec and the upload dialogue.
package bot

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/selection"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
	"github.com/moyoez/sora-history-bot/upload"
)

const (
	workerQueueSize = 32
	workerIdle      = 5 * time.Minute
)

// Transport is the chat side the bot talks to. *telegram.Client implements it.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard *types.InlineKeyboardMarkup) error
	SendVideo(ctx context.Context, chatID int64, path, caption string) error
	AnswerCallback(ctx context.Context, callbackID string) error
	OpenFile(ctx context.Context, fileID string) (io.ReadCloser, error)
}

type Notifier interface {
	Notify(notification *types.Notification)
}

type Options struct {
	Transport    Transport
	Catalog      *catalog.Store
	Codec        *selection.Codec
	Uploads      *upload.Machine
	Notifier     Notifier // optional
	MaxSendBytes int64
}

type Bot struct {
	transport Transport
	catalog   *catalog.Store
	codec     *selection.Codec
	uploads   *upload.Machine
	notifier  Notifier
	maxSend   int64

	// ctx outlives single updates: background uploads run on it
	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}

	mu         sync.Mutex
	closed     bool
	workers    map[int64]chan types.Update
	workerIdle time.Duration

	workerWG sync.WaitGroup
	jobs     sync.WaitGroup
}

func New(opts Options) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		transport: opts.Transport,
		catalog:   opts.Catalog,
		codec:     opts.Codec,
		uploads:   opts.Uploads,
		notifier:  opts.Notifier,
		maxSend:   opts.MaxSendBytes,
		ctx:       ctx,
		cancel:    cancel,
		stop:      make(chan struct{}),
		workers:   make(map[int64]chan types.Update),

		workerIdle: workerIdle,
	}
}

// Dispatch queues upd on the worker of its chat. Updates of one chat are handled in order, different chats
// run concurrently. Dispatch never blocks: an update for a chat whose queue is full is dropped, and so is
// any update after Shutdown.
func (b *Bot) Dispatch(upd types.Update) {
	chatID, ok := chatOf(upd)
	if !ok {
		tool.DefaultLogger.Debugf("[Bot] Ignoring update %d without chat", upd.UpdateID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	queue, ok := b.workers[chatID]
	if !ok {
		queue = make(chan types.Update, workerQueueSize)
		b.workers[chatID] = queue
		b.workerWG.Add(1)
		go b.work(chatID, queue)
	}
	select {
	case queue <- upd:
	default:
		tool.DefaultLogger.Warnf("[Bot] Chat %d is busy, dropping update %d", chatID, upd.UpdateID)
	}
}

// work drains the queue of one chat and retires after workerIdle without updates.
func (b *Bot) work(chatID int64, queue chan types.Update) {
	defer b.workerWG.Done()
	idle := time.NewTimer(b.workerIdle)
	defer idle.Stop()
	for {
		select {
		case upd := <-queue:
			b.HandleUpdate(b.ctx, upd)
			idle.Reset(b.workerIdle)
		case <-idle.C:
			if b.retire(chatID, queue) {
				return
			}
			idle.Reset(b.workerIdle)
		case <-b.stop:
			for {
				select {
				case upd := <-queue:
					b.HandleUpdate(b.ctx, upd)
				default:
					return
				}
			}
		}
	}
}

// retire removes the worker of chatID unless an update slipped into its queue.
// Dispatch only sends while holding b.mu, so an empty queue stays empty once removed.
func (b *Bot) retire(chatID int64, queue chan types.Update) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(queue) > 0 {
		return false
	}
	if b.workers[chatID] == queue {
		delete(b.workers, chatID)
	}
	return true
}

// HandleUpdate processes one update synchronously. Uploads continue in the background after it returns.
func (b *Bot) HandleUpdate(ctx context.Context, upd types.Update) {
	defer func() {
		if r := recover(); r != nil {
			tool.DefaultLogger.Errorf("[Bot] Panic while handling update %d: %v", upd.UpdateID, r)
		}
	}()
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

// WaitJobs blocks until every background upload has finished.
func (b *Bot) WaitJobs() {
	b.jobs.Wait()
}

// Shutdown stops accepting updates, lets queued updates and running uploads finish and gives up when ctx
// is done, cancelling whatever is still running.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.stop)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.workerWG.Wait()
		b.jobs.Wait()
		close(done)
	}()
	defer b.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *types.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if cmd, args := splitCommand(msg.Text); cmd != "" {
		b.handleCommand(ctx, msg, cmd, args)
		return
	}
	if msg.Video != nil || msg.Document != nil || len(msg.Photo) > 0 {
		b.handleAttachment(ctx, msg)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.replyWithKeyboard(ctx, chatID, text, nil)
}

func (b *Bot) replyWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *types.InlineKeyboardMarkup) {
	sendCtx, cancel := context.WithTimeout(ctx, tool.DefaultTimeout)
	defer cancel()
	if err := b.transport.SendText(sendCtx, chatID, text, keyboard); err != nil {
		tool.DefaultLogger.Errorf("[Bot] Failed to reply in chat %d: %v", chatID, err)
	}
}

func (b *Bot) notify(n *types.Notification) {
	if b.notifier != nil {
		b.notifier.Notify(n)
	}
}

func chatOf(upd types.Update) (int64, bool) {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	case upd.CallbackQuery != nil:
		return upd.CallbackQuery.From.ID, true
	}
	return 0, false
}

// sendTimeout leaves room for a 50MB upload to Telegram.
const sendTimeout = 10 * time.Minute
