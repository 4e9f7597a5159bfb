// Package ui is the terminal front end: a tview message list that satisfies
// client.MessageView, a password modal for room challenges and modal
// notifications.
package ui

import (
	"sync/atomic"

	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type UI struct {
	App   *tview.Application
	Theme *Theme
	Pages *tview.Pages

	Login *LoginScreen
	Chat  *ChatScreen

	// promptSlot admits one password modal at a time; promptSeq names its page.
	promptSlot chan struct{}
	promptSeq  atomic.Uint64

	logger zerolog.Logger
}

func NewUI(theme *Theme) *UI {
	if theme == nil {
		theme = DefaultTheme()
	}
	tview.Borders.HorizontalFocus = tview.Borders.Horizontal
	tview.Borders.VerticalFocus = tview.Borders.Vertical
	tview.Borders.TopLeftFocus = '╭'
	tview.Borders.TopRightFocus = '╮'
	tview.Borders.BottomLeftFocus = '╰'
	tview.Borders.BottomRightFocus = '╯'

	tview.Styles.PrimitiveBackgroundColor = theme.GetColor("background")
	tview.Styles.ContrastBackgroundColor = theme.GetColor("background-light")
	tview.Styles.PrimaryTextColor = theme.GetColor("foreground")
	tview.Styles.TitleColor = theme.GetColor("primary")
	tview.Styles.BorderColor = theme.GetColor("border")

	ui := &UI{
		App:        tview.NewApplication().EnableMouse(true),
		Theme:      theme,
		Pages:      tview.NewPages(),
		promptSlot: make(chan struct{}, 1),
		logger:     log.With().Str("component", "ui").Logger(),
	}
	ui.Login = newLoginScreen(ui)
	ui.Chat = newChatScreen(ui)

	ui.Pages.
		AddPage(pageLogin, ui.Login.layout, true, false).
		AddPage(pageChat, ui.Chat.layout, true, false)
	ui.App.SetRoot(ui.Pages, true)
	return ui
}

const (
	pageLogin    = "login"
	pageChat     = "chat"
	pageError    = "error"
	pageToast    = "toast"
	pagePassword = "password"
)

// ShowLogin and ShowChat may be called from any goroutine.
func (ui *UI) ShowLogin() {
	ui.App.QueueUpdateDraw(func() {
		ui.Pages.SwitchToPage(pageLogin)
		ui.App.SetFocus(ui.Login.form)
	})
}

func (ui *UI) ShowChat() {
	ui.App.QueueUpdateDraw(func() {
		ui.Pages.SwitchToPage(pageChat)
		ui.App.SetFocus(ui.Chat.msgInput)
	})
}

func (ui *UI) Run() error {
	return ui.App.Run()
}

func (ui *UI) Stop() {
	ui.App.Stop()
}

// centered wraps p in spacers so it floats in the middle of the screen.
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (ui *UI) styleForm(f *tview.Form) {
	bgColor, fieldBg, buttonBg, buttonText, fieldText := ui.Theme.FormColors()
	f.SetBackgroundColor(bgColor)
	f.SetButtonBackgroundColor(buttonBg)
	f.SetButtonTextColor(buttonText)
	f.SetFieldBackgroundColor(fieldBg)
	f.SetFieldTextColor(fieldText)
	f.SetLabelColor(ui.Theme.GetColor("primary"))
	f.SetButtonsAlign(tview.AlignCenter)
	f.SetBorder(true).
		SetBorderColor(ui.Theme.GetColor("border")).
		SetTitleAlign(tview.AlignCenter).
		SetTitleColor(ui.Theme.GetColor("primary"))
}
