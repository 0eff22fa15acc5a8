package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/zulandar/chatsync/internal/models"
)

// MockTransport implements Transport for testing. Responses are queued
// per call type; an empty queue confirms the request with a generated
// server uuid.
type MockTransport struct {
	mu sync.Mutex

	messageErrs []error
	mediaErrs   map[string][]error // key: file name
	mediaSteps  map[string][]int   // progress reported per file
	pages       map[string]*models.Page
	pageErrs    []error

	sentMessages []*models.Message
	sentFiles    []models.MediaFile
	pageCalls    []string
	counter      int
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		mediaErrs:  make(map[string][]error),
		mediaSteps: make(map[string][]int),
		pages:      make(map[string]*models.Page),
	}
}

// SendItemMessage records msg and confirms it with a server uuid.
func (m *MockTransport) SendItemMessage(ctx context.Context, c models.Container, msg *models.Message) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentMessages = append(m.sentMessages, msg.Clone())
	if len(m.messageErrs) > 0 {
		err := m.messageErrs[0]
		m.messageErrs = m.messageErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	m.counter++
	confirmed := msg.Clone()
	confirmed.UUID = fmt.Sprintf("srv-%d", m.counter)
	confirmed.Status = models.StatusSent
	return confirmed, nil
}

// SendItemMedia records file, reports its configured progress steps and
// confirms the upload.
func (m *MockTransport) SendItemMedia(ctx context.Context, c models.Container, file models.MediaFile, onProgress func(int)) (*models.MediaUpload, error) {
	m.mu.Lock()
	m.sentFiles = append(m.sentFiles, file)
	steps := m.mediaSteps[file.Name]
	var err error
	if q := m.mediaErrs[file.Name]; len(q) > 0 {
		err = q[0]
		m.mediaErrs[file.Name] = q[1:]
	}
	m.counter++
	n := m.counter
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if onProgress != nil {
		for _, s := range steps {
			onProgress(s)
		}
	}
	return &models.MediaUpload{
		Media: models.MediaAttachment{
			URL:         "https://media.example.com/" + file.Name,
			ContentType: file.ContentType,
		},
		Message: &models.Message{UUID: fmt.Sprintf("srv-%d", n)},
	}, nil
}

// GetItemMessages returns the page registered for cursor.
func (m *MockTransport) GetItemMessages(ctx context.Context, c models.Container, cursor string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageCalls = append(m.pageCalls, cursor)
	if len(m.pageErrs) > 0 {
		err := m.pageErrs[0]
		m.pageErrs = m.pageErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	page, ok := m.pages[cursor]
	if !ok {
		return &models.Page{}, nil
	}
	return page, nil
}

// --- Test helpers ---

// FailMessages queues errors returned by the next SendItemMessage calls.
// A nil entry lets that call succeed.
func (m *MockTransport) FailMessages(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageErrs = append(m.messageErrs, errs...)
}

// FailMedia queues errors for uploads of the named file.
func (m *MockTransport) FailMedia(name string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediaErrs[name] = append(m.mediaErrs[name], errs...)
}

// SetProgress sets the per-item progress reported while uploading name.
func (m *MockTransport) SetProgress(name string, steps ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediaSteps[name] = steps
}

// SetPage registers the page returned for cursor.
func (m *MockTransport) SetPage(cursor string, page *models.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[cursor] = page
}

// FailPages queues errors for the next GetItemMessages calls.
func (m *MockTransport) FailPages(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageErrs = append(m.pageErrs, errs...)
}

// SentMessages returns copies of every message passed to SendItemMessage.
func (m *MockTransport) SentMessages() []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Message, len(m.sentMessages))
	copy(out, m.sentMessages)
	return out
}

// SentFiles returns every file passed to SendItemMedia, in call order.
func (m *MockTransport) SentFiles() []models.MediaFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MediaFile, len(m.sentFiles))
	copy(out, m.sentFiles)
	return out
}

// PageCalls returns the cursors requested from GetItemMessages.
func (m *MockTransport) PageCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.pageCalls))
	copy(out, m.pageCalls)
	return out
}
