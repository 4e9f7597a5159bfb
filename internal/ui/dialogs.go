package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"roomsync/internal/models"
)

const toastDuration = 3 * time.Second

// modal builds a one-button dialog in the given accent color.
func (ui *UI) modal(page, title, message string, accent tcell.Color, onDismiss func()) *tview.Modal {
	bg := ui.Theme.GetColor("modal-background")
	m := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			ui.Pages.RemovePage(page)
			if onDismiss != nil {
				onDismiss()
			}
		}).
		SetButtonStyle(tcell.StyleDefault.Background(bg).Foreground(accent)).
		SetButtonActivatedStyle(tcell.StyleDefault.Background(accent).Foreground(bg)).
		SetBackgroundColor(bg)
	m.SetBorder(true).
		SetBorderColor(accent).
		SetTitle(title).
		SetTitleColor(accent).
		SetTitleAlign(tview.AlignCenter)
	return m
}

// ShowToast must run on the UI goroutine.
func (ui *UI) ShowToast(title, message string, duration time.Duration) {
	focus := ui.App.GetFocus()
	restore := func() {
		if focus != nil {
			ui.App.SetFocus(focus)
		}
	}
	m := ui.modal(pageToast, title, message, ui.Theme.GetColor("primary"), restore)
	ui.Pages.AddPage(pageToast, m, true, true)
	ui.App.SetFocus(m)

	if duration > 0 {
		go func() {
			time.Sleep(duration)
			ui.App.QueueUpdateDraw(func() {
				if ui.Pages.HasPage(pageToast) {
					ui.Pages.RemovePage(pageToast)
					restore()
				}
			})
		}()
	}
}

// ShowError must run on the UI goroutine.
func (ui *UI) ShowError(title, message string, onDismiss func()) {
	focus := ui.App.GetFocus()
	m := ui.modal(pageError, title, message, ui.Theme.GetColor("red"), func() {
		if focus != nil {
			ui.App.SetFocus(focus)
		}
		if onDismiss != nil {
			onDismiss()
		}
	})
	ui.Pages.AddPage(pageError, m, true, true)
	ui.App.SetFocus(m)
}

// Error implements client.Notifier.
func (ui *UI) Error(title string, err error) {
	ui.logger.Warn().Err(err).Str("title", title).Msg("[ui] error shown")
	ui.App.QueueUpdateDraw(func() {
		ui.ShowError(title, err.Error(), nil)
	})
}

// Info implements client.Notifier.
func (ui *UI) Info(title, msg string) {
	ui.App.QueueUpdateDraw(func() {
		ui.ShowToast(title, msg, toastDuration)
	})
}

func promptTitle(room string, purpose models.PromptPurpose) string {
	switch purpose {
	case models.PurposeClaim:
		return fmt.Sprintf("[ Claim %s ]", room)
	case models.PurposeUpdateClaim:
		return fmt.Sprintf("[ New password for %s ]", room)
	}
	return fmt.Sprintf("[ %s is protected ]", room)
}

// PromptPassword implements auth.PasswordPrompter. It blocks until the user
// answers or ctx ends, so it must not be called on the UI goroutine. Cancel
// yields a nil answer. Prompts queue behind one another; a caller whose ctx
// ends while waiting never shows its modal.
func (ui *UI) PromptPassword(ctx context.Context, room string, purpose models.PromptPurpose) (*models.PasswordAnswer, error) {
	select {
	case ui.promptSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-ui.promptSlot }()

	page := fmt.Sprintf("%s-%d", pagePassword, ui.promptSeq.Add(1))
	answers := make(chan *models.PasswordAnswer, 1)
	answer := func(a *models.PasswordAnswer) {
		select {
		case answers <- a:
		default:
		}
	}

	ui.App.QueueUpdateDraw(func() {
		focus := ui.App.GetFocus()
		form := tview.NewForm()
		ui.styleForm(form)
		form.SetTitle(promptTitle(room, purpose))

		var password string
		remember := purpose == models.PurposeAccess
		form.AddPasswordField("Password", "", 0, '*', func(s string) { password = s })
		if purpose == models.PurposeAccess {
			form.AddCheckbox("Remember", true, func(checked bool) { remember = checked })
		}
		done := func(a *models.PasswordAnswer) {
			ui.Pages.RemovePage(page)
			if focus != nil {
				ui.App.SetFocus(focus)
			}
			answer(a)
		}
		form.AddButton("OK", func() {
			done(&models.PasswordAnswer{Password: password, Remember: remember})
		})
		form.AddButton("Cancel", func() { done(nil) })
		form.SetCancelFunc(func() { done(nil) })

		height := 7
		if purpose == models.PurposeAccess {
			height = 9
		}
		ui.Pages.AddPage(page, centered(form, 46, height), true, true)
		ui.App.SetFocus(form)
	})

	select {
	case a := <-answers:
		return a, nil
	case <-ctx.Done():
		ui.App.QueueUpdateDraw(func() { ui.Pages.RemovePage(page) })
		return nil, ctx.Err()
	}
}
