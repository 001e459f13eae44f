package tui

import (
	"fmt"
	"strings"
	"time"

	"contacts/internal/errdecode"
	"contacts/internal/imageload"
	"contacts/internal/models"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	iconDelete  = "delete"
	iconRestore = "delete-restore"
)

// ContactOptions carries the settings shared by every contact screen.
type ContactOptions struct {
	Decoder    errdecode.Decoder
	Images     *imageload.Loader
	ImageURL   string
	PopOnError bool
	Log        *zap.SugaredLogger
}

// ContactScreen edits one contact. It owns its working copy until the copy
// is handed to the store manager.
type ContactScreen struct {
	mgr  StoreManager
	opts ContactOptions

	contact  models.Contact
	errorMsg string

	inputs []textinput.Model
	focus  int

	// pending is set while a save or delete is in flight.
	pending   bool
	statusMsg string

	// imageID tags this screen's image load so events from a screen that
	// was already popped are ignored.
	imageID     string
	imageStart  time.Time
	imageLoaded bool
	imageMillis int64
	imageErr    error

	width int
}

func NewContactScreen(mgr StoreManager, c models.Contact, opts ContactOptions) ContactScreen {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Decoder == nil {
		opts.Decoder = errdecode.EnvelopeDecoder{}
	}

	s := ContactScreen{
		mgr:     mgr,
		opts:    opts,
		contact: c,
		imageID: uuid.NewString(),
	}
	s.initInputs()
	s.refreshError()
	return s
}

func (s *ContactScreen) initInputs() {
	s.inputs = make([]textinput.Model, len(models.EditableFields))
	for i, f := range models.EditableFields {
		in := textinput.New()
		in.Placeholder = f.Label
		in.Width = 40
		v, _ := s.contact.Get(f.Key)
		in.SetValue(v)
		s.inputs[i] = in
	}
	s.focus = 0
	s.inputs[0].Focus()
}

func (s *ContactScreen) refreshError() {
	s.errorMsg = errdecode.Render(s.opts.Decoder, s.contact.LastError, s.opts.Log)
}

// Contact returns the working copy.
func (s ContactScreen) Contact() models.Contact {
	return s.contact
}

func (s ContactScreen) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if s.opts.Images != nil && s.opts.ImageURL != "" {
		cmds = append(cmds, s.opts.Images.Start(s.imageID, s.opts.ImageURL))
	}
	return tea.Batch(cmds...)
}

func (s ContactScreen) Header() HeaderOptions {
	icon := iconDelete
	if s.contact.Is(models.FlagDeleted) {
		icon = iconRestore
	}
	return HeaderOptions{
		Title: "Contact",
		Left:  "← esc",
		Right: []string{icon + " ctrl+d"},
	}
}

func (s ContactScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		return s, nil

	case ContactSavedMsg:
		return s.onSaved(msg)

	case ContactDeletedMsg:
		return s.onDeleted(msg)

	case imageload.ImageLoadStartMsg:
		return s.onImageLoadStart(msg)

	case imageload.ImageLoadedMsg:
		return s.onImageLoadEnd(msg), nil

	case tea.KeyMsg:
		if s.pending {
			return s, nil
		}
		switch msg.String() {
		case "esc":
			return s.onBack()
		case "ctrl+s":
			return s.onSave()
		case "ctrl+d":
			return s.onDeleteUndeleteContact()
		case "tab", "down":
			s.moveFocus(1)
			return s, nil
		case "shift+tab", "up":
			s.moveFocus(-1)
			return s, nil
		}

		var cmd tea.Cmd
		s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
		key := models.EditableFields[s.focus].Key
		if cur, _ := s.contact.Get(key); cur != s.inputs[s.focus].Value() {
			var err error
			if s, err = s.onFieldChange(key, s.inputs[s.focus].Value()); err != nil {
				s.opts.Log.Errorw("field change rejected", "field", key, "error", err)
			}
		}
		return s, cmd
	}

	return s, nil
}

func (s *ContactScreen) moveFocus(delta int) {
	n := len(s.inputs)
	s.inputs[s.focus].Blur()
	s.focus = (s.focus + delta + n) % n
	s.inputs[s.focus].Focus()
}

// onFieldChange stores value verbatim on the working copy. Dirty state is
// only recorded on save.
func (s ContactScreen) onFieldChange(key, value string) (ContactScreen, error) {
	if err := s.contact.Set(key, value); err != nil {
		return s, err
	}
	for i, f := range models.EditableFields {
		if f.Key == key && s.inputs[i].Value() != value {
			s.inputs[i].SetValue(value)
		}
	}
	return s, nil
}

func (s ContactScreen) onSave() (Screen, tea.Cmd) {
	s.contact.MarkSaved()
	s.refreshError()
	s.pending = true
	s.statusMsg = "Saving..."
	return s, SaveCmd(s.mgr, s.contact)
}

func (s ContactScreen) onDeleteUndeleteContact() (Screen, tea.Cmd) {
	s.contact.ToggleDeleted()
	s.pending = true
	s.statusMsg = "Saving..."
	return s, SaveCmd(s.mgr, s.contact)
}

// onBack discards a record that was created here and never edited.
// Anything else is left as it is.
func (s ContactScreen) onBack() (Screen, tea.Cmd) {
	if s.contact.Is(models.FlagCreated) && !s.contact.Is(models.FlagModified) {
		s.pending = true
		s.statusMsg = "Discarding..."
		return s, DeleteCmd(s.mgr, s.contact)
	}
	return s, Pop
}

func (s ContactScreen) onSaved(msg ContactSavedMsg) (Screen, tea.Cmd) {
	if msg.Err == nil {
		s.contact = msg.Contact
		s.refreshError()
		s.pending = false
		s.statusMsg = ""
		return s, Pop
	}
	return s.onFailure("Save failed", msg.Err)
}

func (s ContactScreen) onDeleted(msg ContactDeletedMsg) (Screen, tea.Cmd) {
	if msg.Err == nil {
		s.pending = false
		s.statusMsg = ""
		return s, Pop
	}
	return s.onFailure("Discard failed", msg.Err)
}

func (s ContactScreen) onFailure(what string, err error) (Screen, tea.Cmd) {
	s.opts.Log.Warnw(strings.ToLower(what), "id", s.contact.ID, "error", err)
	s.pending = false
	text := fmt.Sprintf("%s: %v", what, err)
	if s.opts.PopOnError {
		s.statusMsg = ""
		return s, tea.Batch(Pop, Status(text, true))
	}
	s.statusMsg = text
	return s, nil
}

func (s ContactScreen) onImageLoadStart(msg imageload.ImageLoadStartMsg) (Screen, tea.Cmd) {
	if msg.ID != s.imageID || msg.URL != s.opts.ImageURL {
		return s, nil
	}
	s.imageStart = msg.At
	s.imageLoaded = false
	if s.opts.Images == nil {
		return s, nil
	}
	return s, s.opts.Images.Fetch(s.imageID, msg.URL)
}

func (s ContactScreen) onImageLoadEnd(msg imageload.ImageLoadedMsg) ContactScreen {
	if msg.ID != s.imageID || msg.URL != s.opts.ImageURL || s.imageStart.IsZero() {
		return s
	}
	s.imageLoaded = true
	s.imageMillis = imageload.Elapsed(imageload.ImageLoadStartMsg{At: s.imageStart}, msg)
	s.imageErr = msg.Err
	return s
}

func (s ContactScreen) renderError() string {
	if s.errorMsg == "" {
		return ""
	}
	return errorBannerStyle.Render("✗ " + s.errorMsg)
}

func (s ContactScreen) renderImageLoadTime() string {
	if !s.imageLoaded {
		return ""
	}
	line := fmt.Sprintf("Image load time: %d ms", s.imageMillis)
	if s.imageErr != nil {
		line += " (failed)"
	}
	return mutedStyle.Render(line)
}

func (s ContactScreen) View() string {
	var b strings.Builder

	if e := s.renderError(); e != "" {
		b.WriteString(e)
		b.WriteString("\n\n")
	}

	if t := s.renderImageLoadTime(); t != "" {
		b.WriteString(t)
		b.WriteString("\n\n")
	}

	labelStyle := lipgloss.NewStyle().Foreground(mutedColor)
	for i, f := range models.EditableFields {
		b.WriteString(labelStyle.Render(f.Label))
		b.WriteString("\n")
		if i == s.focus {
			b.WriteString(focusedInputStyle.Render(s.inputs[i].View()))
		} else {
			b.WriteString(inputStyle.Render(s.inputs[i].View()))
		}
		b.WriteString("\n")
	}

	if s.contact.Local() {
		b.WriteString("\n")
		b.WriteString(pendingBadgeStyle.Render("● " + s.contact.Flags.String()))
	}

	if s.statusMsg != "" {
		b.WriteString("\n")
		if s.pending {
			b.WriteString(mutedStyle.Render(s.statusMsg))
		} else {
			b.WriteString(errorStyle.Render("⚠ " + s.statusMsg))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab next field • ctrl+s save • ctrl+d delete/restore • esc back"))

	return boxStyle.Render(b.String())
}
