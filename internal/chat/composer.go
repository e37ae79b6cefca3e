package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/metrics"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/session"
	"github.com/Rida-Lamiini/Chat-app/internal/storage"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// Composer accumulates outgoing text and image input for the open
// conversation and submits it as one message.
type Composer struct {
	store     store.Store
	blobs     storage.BlobStore
	session   *session.Holder
	selection *Selection
	log       *zap.SugaredLogger

	mu    sync.Mutex
	text  string
	image []byte
}

func NewComposer(st store.Store, blobs storage.BlobStore, sess *session.Holder, sel *Selection, log *zap.SugaredLogger) *Composer {
	return &Composer{store: st, blobs: blobs, session: sess, selection: sel, log: log}
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

// AppendText adds to the pending text, e.g. an emoji picked in the UI.
func (c *Composer) AppendText(s string) {
	c.mu.Lock()
	c.text += s
	c.mu.Unlock()
}

func (c *Composer) AttachImage(data []byte) {
	c.mu.Lock()
	c.image = data
	c.mu.Unlock()
}

func (c *Composer) Pending() (text string, hasImage bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, len(c.image) > 0
}

// Submit sends the accumulated input. It is a no-op when there is nothing
// to send, no conversation is open, or either block flag is set. The image
// upload and the message append surface their errors and leave the input
// intact for a retry; the two membership-preview updates are fire-and-
// forget and only logged.
func (c *Composer) Submit(ctx context.Context) error {
	sess := c.session.State().Profile
	if sess == nil {
		return ErrNoSession
	}
	sel := c.selection.State()

	c.mu.Lock()
	text := strings.TrimSpace(c.text)
	image := c.image
	c.mu.Unlock()

	if text == "" && len(image) == 0 {
		return nil
	}
	if sel.ChatID == "" || sel.BlockedByMe || sel.BlockedByCounterpart {
		return nil
	}

	imageURL := ""
	if len(image) > 0 {
		data, ct, err := storage.NormalizeImage(image, http.DetectContentType(image))
		if err != nil {
			return fmt.Errorf("process image: %w", err)
		}
		key := fmt.Sprintf("chat_images/%d-%s", time.Now().UnixNano(), uuid.NewString())
		imageURL, err = c.blobs.Upload(ctx, key, ct, data)
		if err != nil {
			return fmt.Errorf("upload image: %w", err)
		}
	}

	now := time.Now()
	msg := models.Message{
		SenderID:  sess.ID,
		Text:      text,
		Image:     imageURL,
		CreatedAt: now.Unix(),
	}
	if err := c.store.AppendMessage(ctx, sel.ChatID, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	metrics.MessagesSent.Inc()

	// The sender's own entry reads as seen, the recipient's as unseen.
	for _, id := range []string{sess.ID, sel.Counterpart.ID} {
		seen := id == sess.ID
		if err := c.store.UpdateMembershipEntry(ctx, id, sel.ChatID, text, seen, now.UnixMilli()); err != nil {
			c.log.Errorw("update membership entry", "owner", id, "chat", sel.ChatID, "err", err)
		}
	}

	c.mu.Lock()
	c.text = ""
	c.image = nil
	c.mu.Unlock()
	return nil
}
