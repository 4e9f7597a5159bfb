package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// LoginScreen collects account credentials. Skip continues without an
// account: rooms still work, but nothing is remembered server side.
type LoginScreen struct {
	*UI
	layout   *tview.Flex
	form     *tview.Form
	Username string
	Password string

	OnLogin    func(username, password string)
	OnRegister func(username, password string)
	OnSkip     func()
}

const banner = `
 ┏━┓┏━┓┏━┓┏┳┓┏━┓╻ ╻┏┓╻┏━╸
 ┣┳┛┃ ┃┃ ┃┃┃┃┗━┓┗┳┛┃┗┫┃
 ╹┗╸┗━┛┗━┛╹ ╹┗━┛ ╹ ╹ ╹┗━╸
`

func newLoginScreen(ui *UI) *LoginScreen {
	l := &LoginScreen{UI: ui}

	header := tview.NewTextView().
		SetText(banner).
		SetTextAlign(tview.AlignCenter)
	header.SetTextStyle(tcell.StyleDefault.
		Foreground(ui.Theme.GetColor("accent")).
		Background(ui.Theme.GetColor("background")))

	l.form = tview.NewForm()
	ui.styleForm(l.form)
	l.form.SetTitle("[ Account ]")
	l.form.
		AddInputField("Username", "", 0, nil, func(s string) { l.Username = s }).
		AddPasswordField("Password", "", 0, '*', func(s string) { l.Password = s }).
		AddButton("Login", func() {
			if l.OnLogin != nil {
				go l.OnLogin(l.Username, l.Password)
			}
		}).
		AddButton("Register", func() {
			if l.OnRegister != nil {
				go l.OnRegister(l.Username, l.Password)
			}
		}).
		AddButton("Skip", func() {
			if l.OnSkip != nil {
				go l.OnSkip()
			}
		})

	l.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(header, 5, 0, false).
		AddItem(tview.NewFlex().
			AddItem(nil, 0, 1, false).
			AddItem(l.form, 0, 2, true).
			AddItem(nil, 0, 1, false), 11, 0, true).
		AddItem(nil, 0, 1, false)
	return l
}
