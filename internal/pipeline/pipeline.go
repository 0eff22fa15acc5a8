// Package pipeline sends messages and media optimistically: records are
// staged into the store before the backend is called, then reconciled in
// place or marked failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/zulandar/chatsync/internal/grouping"
	"github.com/zulandar/chatsync/internal/journal"
	"github.com/zulandar/chatsync/internal/models"
	"github.com/zulandar/chatsync/internal/retry"
	"github.com/zulandar/chatsync/internal/store"
)

// Transport is the backend surface used by the pipeline. Each method
// addresses one room or discussion.
type Transport interface {
	SendItemMessage(ctx context.Context, c models.Container, msg *models.Message) (*models.Message, error)
	SendItemMedia(ctx context.Context, c models.Container, file models.MediaFile, onProgress func(percent int)) (*models.MediaUpload, error)
	GetItemMessages(ctx context.Context, c models.Container, cursor string) (*models.Page, error)
}

// Journal records transmit attempts. *journal.Journal satisfies it.
type Journal interface {
	Record(msg *models.Message, op string, err error)
	Rename(oldUUID, newUUID string) error
}

// Opts configures a Pipeline.
type Opts struct {
	Store     *store.Store
	Transport Transport
	Author    *models.UserRef
	Journal   Journal // optional
	Retry     retry.Options
}

// Pipeline stages, transmits and reconciles outbound messages.
type Pipeline struct {
	store     *store.Store
	transport Transport
	author    models.UserRef
	journal   Journal
	retry     retry.Options
}

// New creates a Pipeline.
func New(opts Opts) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline: store is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("pipeline: transport is required")
	}
	if opts.Author == nil || opts.Author.Email == "" {
		return nil, fmt.Errorf("pipeline: author is required")
	}
	return &Pipeline{
		store:     opts.Store,
		transport: opts.Transport,
		author:    *opts.Author,
		journal:   opts.Journal,
		retry:     opts.Retry,
	}, nil
}

// SendMessage stages a text message in c and sends it. On success the
// staged record is reconciled in place with the confirmed message. On
// failure the record stays in the timeline, marked failed, and the
// transport error is returned. A zero container is a no-op.
func (p *Pipeline) SendMessage(ctx context.Context, c models.Container, text string, repliedTo *models.Message) (*models.Message, error) {
	if c.IsZero() {
		return nil, nil
	}
	tmp := models.NewTemporaryMessage(c.Kind, c.UUID, &p.author, text, nil)
	tmp.RepliedMessage = repliedTo.Clone()
	payload := tmp.Clone()
	tmpUUID := tmp.UUID
	p.store.AddMessage(tmp, grouping.Options{})

	confirmed, err := p.transport.SendItemMessage(ctx, c, payload)
	if err != nil {
		p.record(payload, journal.OpSend, err)
		p.store.MarkFailed(tmpUUID)
		return nil, fmt.Errorf("pipeline: send message: %w", err)
	}

	final := p.reconcile(tmpUUID, func(m *models.Message) {
		applyConfirmed(m, confirmed)
	})
	if final == nil {
		applyConfirmed(payload, confirmed)
		payload.Status = models.StatusSent
		final = payload
	}
	p.record(final, journal.OpSend, nil)
	return final, nil
}

// SendMedias stages one message per file in c and uploads them strictly
// in order. A failed upload marks its own record failed and the loop
// moves on. progress receives the running completion percentage and
// always ends with nil. The returned error joins the per-file failures.
func (p *Pipeline) SendMedias(ctx context.Context, c models.Container, files []models.MediaFile, progress func(*int)) ([]*models.Message, error) {
	if c.IsZero() || len(files) == 0 {
		return nil, nil
	}
	report := newProgress(len(files), progress)
	defer report.done()

	staged := make([]*models.Message, len(files))
	uploads := make([]models.MediaFile, len(files))
	for i, file := range files {
		if file.Preview == "" {
			file.Preview = "blob:local/" + uuid.NewString()
		}
		uploads[i] = file
		att := models.MediaAttachment{
			Preview:     file.Preview,
			File:        file.Data,
			FileName:    file.Name,
			ContentType: file.ContentType,
		}
		tmp := models.NewTemporaryMessage(c.Kind, c.UUID, &p.author, "", []models.MediaAttachment{att})
		staged[i] = tmp.Clone()
		p.store.AddMessage(tmp, grouping.Options{})
	}

	var (
		sent []*models.Message
		errs []error
	)
	for i, file := range uploads {
		tmp := staged[i]
		upload, err := p.transport.SendItemMedia(ctx, c, file, report.item(i))
		if err != nil {
			log.Printf("pipeline: send media %q: %v", file.Name, err)
			p.record(tmp, journal.OpSendMedia, err)
			p.store.MarkFailed(tmp.UUID)
			errs = append(errs, fmt.Errorf("%s: %w", file.Name, err))
			continue
		}
		final := p.reconcile(tmp.UUID, func(m *models.Message) {
			applyUpload(m, upload)
		})
		if final == nil {
			applyUpload(tmp, upload)
			tmp.Status = models.StatusSent
			final = tmp
		}
		p.record(final, journal.OpSendMedia, nil)
		sent = append(sent, final)
		report.completed(i + 1)
	}

	if len(errs) > 0 {
		return sent, fmt.Errorf("pipeline: send medias: %d of %d failed: %w",
			len(errs), len(files), errors.Join(errs...))
	}
	return sent, nil
}

// ResendMessage retransmits a failed or pending text message. A resend
// already in flight for the same uuid is dropped. The record is flagged
// as sending only when actor is the message's own author.
func (p *Pipeline) ResendMessage(ctx context.Context, msg *models.Message, actor *models.UserRef) error {
	if msg == nil || msg.Container.IsZero() {
		return nil
	}
	if !p.store.BeginSend(msg.UUID) {
		return nil
	}
	defer p.store.EndSend(msg.UUID)

	p.markSending(msg, actor)

	confirmed, err := p.transport.SendItemMessage(ctx, msg.Container, msg.Clone())
	if err != nil {
		log.Printf("pipeline: resend message %s: %v", msg.UUID, err)
		p.record(msg, journal.OpResend, err)
		p.store.MarkFailed(msg.UUID)
		return fmt.Errorf("pipeline: resend message: %w", err)
	}

	p.store.ClearFailed(msg.UUID)
	final := p.reconcile(msg.UUID, func(m *models.Message) {
		applyConfirmed(m, confirmed)
	})
	if final == nil {
		final = msg
	}
	p.record(final, journal.OpResend, nil)
	return nil
}

// ResendMedia re-uploads the first attachment of msg with retries. The
// local preview is kept on the reconciled attachment. Messages without a
// local file are ignored.
func (p *Pipeline) ResendMedia(ctx context.Context, msg *models.Message, actor *models.UserRef) error {
	if msg == nil || msg.Container.IsZero() || len(msg.Media) == 0 || len(msg.Media[0].File) == 0 {
		return nil
	}
	if !p.store.BeginSend(msg.UUID) {
		return nil
	}
	defer p.store.EndSend(msg.UUID)

	p.markSending(msg, actor)

	att := msg.Media[0]
	file := models.MediaFile{
		Name:        att.FileName,
		ContentType: att.ContentType,
		Data:        att.File,
		Preview:     att.Preview,
	}
	upload, err := retry.Do(ctx, p.retry, func(ctx context.Context) (*models.MediaUpload, error) {
		return p.transport.SendItemMedia(ctx, msg.Container, file, nil)
	})
	if err != nil {
		log.Printf("pipeline: resend media %s: %v", msg.UUID, err)
		p.record(msg, journal.OpResendMedia, err)
		p.store.MarkFailed(msg.UUID)
		return fmt.Errorf("pipeline: resend media: %w", err)
	}

	p.store.ClearFailed(msg.UUID)
	final := p.reconcile(msg.UUID, func(m *models.Message) {
		applyUpload(m, upload)
	})
	if final == nil {
		final = msg
	}
	p.record(final, journal.OpResendMedia, nil)
	return nil
}

// LoadOlder fetches the page before cursor and prepends it to the open
// timeline. Results are expected oldest first. It returns the cursor of
// the next older page, empty when history is exhausted.
func (p *Pipeline) LoadOlder(ctx context.Context, c models.Container, cursor string) (string, error) {
	if c.IsZero() {
		return "", nil
	}
	page, err := retry.Do(ctx, p.retry, func(ctx context.Context) (*models.Page, error) {
		return p.transport.GetItemMessages(ctx, c, cursor)
	})
	if err != nil {
		return "", fmt.Errorf("pipeline: load older %s: %w", c, err)
	}
	if page == nil {
		return "", nil
	}
	for i := len(page.Results) - 1; i >= 0; i-- {
		m := page.Results[i]
		if m == nil {
			continue
		}
		if m.Container.IsZero() {
			m.Container = c
		}
		if m.Status == "" {
			m.Status = models.StatusSent
		}
		p.store.AddMessage(m, grouping.Options{AddBefore: true})
	}
	return page.Next, nil
}

func (p *Pipeline) markSending(msg *models.Message, actor *models.UserRef) {
	own := actor != nil && msg.User != nil && actor.Email != "" && actor.Email == msg.User.Email
	p.store.UpdateMessage(msg.UUID, func(m *models.Message) {
		m.Status = models.StatusPending
		m.Sending = own
	})
}

// reconcile updates the staged record in place and returns a copy of the
// result. It returns nil when the record is no longer in the open
// container, in which case the confirmation has no visible effect.
func (p *Pipeline) reconcile(tmpUUID string, fn func(*models.Message)) *models.Message {
	var newUUID string
	ok := p.store.UpdateMessage(tmpUUID, func(m *models.Message) {
		fn(m)
		m.Status = models.StatusSent
		m.Sending = false
		newUUID = m.UUID
	})
	if !ok {
		return nil
	}
	if p.journal != nil && newUUID != tmpUUID {
		if err := p.journal.Rename(tmpUUID, newUUID); err != nil {
			log.Printf("pipeline: %v", err)
		}
	}
	final, _ := p.store.Message(newUUID)
	return final
}

func (p *Pipeline) record(msg *models.Message, op string, err error) {
	if p.journal == nil || msg == nil {
		return
	}
	p.journal.Record(msg, op, err)
}

func applyConfirmed(m, confirmed *models.Message) {
	if confirmed == nil {
		return
	}
	if confirmed.UUID != "" {
		m.UUID = confirmed.UUID
	}
	m.Text = confirmed.Text
	if confirmed.CreatedOn != "" {
		m.CreatedOn = confirmed.CreatedOn
	}
	if len(confirmed.Media) > 0 {
		m.Media = confirmed.Media
	}
}

// applyUpload swaps the uploaded attachment in while keeping the local
// preview so the rendered image does not change.
func applyUpload(m *models.Message, upload *models.MediaUpload) {
	if upload == nil {
		return
	}
	preview := ""
	if len(m.Media) > 0 {
		preview = m.Media[0].Preview
	}
	if upload.Message != nil {
		applyConfirmed(m, upload.Message)
	}
	att := upload.Media
	if !att.Uploaded() && len(m.Media) > 0 {
		att = m.Media[0]
	}
	att.Preview = preview
	att.File = nil
	if len(m.Media) == 0 {
		m.Media = []models.MediaAttachment{att}
	} else {
		m.Media[0] = att
	}
}

// progress turns per-item upload percentages into the running total
// round((100*done + itemPercent) / total). Repeated values are not
// reported, nor is 100: completion is signalled by nil.
type progress struct {
	total int
	fn    func(*int)
	last  int
}

func newProgress(total int, fn func(*int)) *progress {
	return &progress{total: total, fn: fn, last: -1}
}

func (pr *progress) emit(done int, itemPercent int) {
	if pr.fn == nil {
		return
	}
	v := int(math.Round(float64(100*done+itemPercent) / float64(pr.total)))
	if v >= 100 || v == pr.last {
		return
	}
	pr.last = v
	pr.fn(&v)
}

func (pr *progress) item(index int) func(int) {
	return func(percent int) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		pr.emit(index, percent)
	}
}

func (pr *progress) completed(done int) {
	pr.emit(done, 0)
}

func (pr *progress) done() {
	if pr.fn != nil {
		pr.fn(nil)
	}
}
