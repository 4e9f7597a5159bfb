package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"roomsync/internal/client"
	"roomsync/internal/models"
	"roomsync/internal/utils"
)

const (
	// rowUnit is the height of one terminal line in the units ScrollMetrics
	// reports. Each message takes two lines, so an item is 60 units tall,
	// matching the scroll policy's default row height.
	rowUnit      = 30
	linesPerItem = 2

	metricsTimeout = 250 * time.Millisecond
)

// ChatHandlers are invoked on their own goroutine, never on the UI one.
type ChatHandlers struct {
	SwitchRoom          func(room string)
	Send                func(text string)
	RemoveRoom          func(room string)
	Claim               func(room string)
	Unclaim             func(room string)
	UpdateClaimPassword func(room string)
	ForgetPassword      func(room string)
}

// ChatScreen renders the current room. Its client.MessageView methods are
// safe to call from any goroutine: mutations are queued onto the UI loop in
// call order.
type ChatScreen struct {
	*UI
	Handlers ChatHandlers
	Now      func() time.Time

	layout    *tview.Flex
	roomInput *tview.InputField
	roomList  *tview.List
	chatView  *tview.Flex
	messages  *tview.List
	indicator *tview.TextView
	msgInput  *tview.TextArea
	status    *tview.TextView

	// owned by the UI goroutine
	rows        []models.Message
	rooms       []string
	currentRoom string

	metricsMu   sync.Mutex
	lastMetrics client.ScrollMetrics
}

var _ client.MessageView = (*ChatScreen)(nil)

func newChatScreen(ui *UI) *ChatScreen {
	c := &ChatScreen{UI: ui, Now: time.Now}
	th := ui.Theme

	c.roomInput = tview.NewInputField().
		SetLabel("Room ").
		SetPlaceholder("enter a room name").
		SetFieldBackgroundColor(th.GetColor("input-field")).
		SetFieldTextColor(th.GetColor("foreground")).
		SetLabelColor(th.GetColor("primary"))
	c.roomInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		room := strings.TrimSpace(c.roomInput.GetText())
		if room == "" {
			return
		}
		c.roomInput.SetText("")
		c.dispatch(c.Handlers.SwitchRoom, room)
		c.App.SetFocus(c.msgInput)
	})

	c.roomList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(th.GetColor("background-light")).
		SetSelectedTextColor(th.GetColor("primary"))
	c.roomList.SetSelectedFocusOnly(true)

	roomPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.roomInput, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(c.roomList, 0, 1, false)
	roomPane.SetBorder(true).
		SetTitle("[ Rooms ]").
		SetBorderPadding(1, 1, 1, 1)

	c.messages = tview.NewList().
		ShowSecondaryText(true).
		SetMainTextColor(th.GetColor("foreground")).
		SetSecondaryTextColor(th.GetColor("foreground-dark")).
		SetSelectedBackgroundColor(th.GetColor("background-light")).
		SetSelectedTextColor(th.GetColor("foreground"))
	c.messages.SetSelectedFocusOnly(true)
	c.messages.SetBorder(true).
		SetBorderPadding(0, 0, 1, 1)

	c.indicator = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetTextColor(th.GetColor("background")).
		SetText("▼ new messages (End to jump)")
	c.indicator.SetBackgroundColor(th.GetColor("accent"))

	c.msgInput = tview.NewTextArea().
		SetPlaceholder("Type a message, Enter to send").
		SetPlaceholderStyle(tcell.StyleDefault.
			Background(th.GetColor("background")).
			Foreground(th.GetColor("foreground-dark"))).
		SetTextStyle(tcell.StyleDefault.
			Background(th.GetColor("background")).
			Foreground(th.GetColor("foreground")))
	c.msgInput.SetWordWrap(true).SetWrap(true)
	c.msgInput.SetBorder(true)
	c.msgInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() != tcell.KeyEnter || event.Modifiers()&tcell.ModAlt != 0 {
			return event
		}
		text := strings.TrimSpace(c.msgInput.GetText())
		if text != "" {
			c.msgInput.SetText("", false)
			c.dispatch(c.Handlers.Send, text)
		}
		return nil
	})

	c.status = tview.NewTextView().SetDynamicColors(true)

	c.chatView = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.messages, 0, 1, false).
		AddItem(c.indicator, 0, 0, false).
		AddItem(c.msgInput, 4, 0, true)

	c.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(roomPane, 0, 1, false).
			AddItem(c.chatView, 0, 4, true), 0, 1, true).
		AddItem(c.status, 1, 0, false)
	c.layout.SetInputCapture(c.handleKey)

	c.renderTitle()
	c.renderStatus()
	return c
}

func (c *ChatScreen) dispatch(fn func(string), arg string) {
	if fn != nil {
		go fn(arg)
	}
}

func (c *ChatScreen) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyTab:
		switch c.App.GetFocus() {
		case c.msgInput:
			c.App.SetFocus(c.messages)
		case c.messages:
			c.App.SetFocus(c.roomList)
		case c.roomList:
			c.App.SetFocus(c.roomInput)
		default:
			c.App.SetFocus(c.msgInput)
		}
		return nil
	case tcell.KeyEnd:
		if c.App.GetFocus() != c.msgInput {
			c.scrollToBottom()
			return nil
		}
	case tcell.KeyCtrlK:
		c.dispatch(c.Handlers.Claim, c.currentRoom)
		return nil
	case tcell.KeyCtrlU:
		c.dispatch(c.Handlers.UpdateClaimPassword, c.currentRoom)
		return nil
	case tcell.KeyCtrlX:
		c.dispatch(c.Handlers.Unclaim, c.currentRoom)
		return nil
	case tcell.KeyCtrlF:
		c.dispatch(c.Handlers.ForgetPassword, c.currentRoom)
		return nil
	case tcell.KeyDelete:
		if c.App.GetFocus() == c.roomList {
			if i := c.roomList.GetCurrentItem(); i >= 0 && i < len(c.rooms) {
				c.dispatch(c.Handlers.RemoveRoom, c.rooms[i])
			}
			return nil
		}
	}
	return event
}

// SetRooms replaces the room library shown on the left.
func (c *ChatScreen) SetRooms(rooms []string, current string) {
	rooms = append([]string(nil), rooms...)
	c.App.QueueUpdateDraw(func() {
		c.rooms = rooms
		c.currentRoom = current
		c.roomList.Clear()
		for _, room := range rooms {
			label := room
			if room == current {
				label = c.Theme.Tag("primary") + "● [-]" + tview.Escape(room)
			} else {
				label = "  " + tview.Escape(label)
			}
			room := room
			c.roomList.AddItem(label, "", 0, func() {
				c.dispatch(c.Handlers.SwitchRoom, room)
			})
		}
		c.renderTitle()
		c.renderStatus()
	})
}

// SetAccount shows who is logged in and whether they own the current room.
func (c *ChatScreen) SetAccount(username string, owner bool) {
	c.App.QueueUpdateDraw(func() {
		label := "guest"
		if username != "" {
			label = username
		}
		if owner {
			label += " (owner)"
		}
		c.status.SetText(c.statusText(label))
	})
}

func (c *ChatScreen) renderTitle() {
	title := "[ no room ]"
	if c.currentRoom != "" {
		title = fmt.Sprintf("[ %s ]", tview.Escape(c.currentRoom))
	}
	c.messages.SetTitle(title)
}

func (c *ChatScreen) renderStatus() {
	c.status.SetText(c.statusText("guest"))
}

func (c *ChatScreen) statusText(who string) string {
	return fmt.Sprintf(" %s%s[-]  Tab focus  End bottom  ^K claim  ^U claim password  ^X unclaim  ^F forget password  Del remove room",
		c.Theme.Tag("accent"), tview.Escape(who))
}

// formatMessage renders one message as list text.
func formatMessage(th *Theme, m models.Message, now time.Time) (main, secondary string) {
	body := tview.Escape(m.Body)
	if utils.IsImageURL(m.Body) {
		body = "[::u]" + body + "[::-]"
	}
	main = fmt.Sprintf("%s%s[-]  %s", th.Tag("primary"), tview.Escape(m.DisplayAuthor()), body)
	if ts, ok := m.Timestamp(); ok {
		secondary = fmt.Sprintf("%s · %s", utils.FormatPrettyTime(ts, now), utils.TimeAgoShort(ts, now))
	}
	return main, secondary
}

func (c *ChatScreen) addRows(msgs []models.Message) {
	now := c.Now()
	for _, m := range msgs {
		main, secondary := formatMessage(c.Theme, m, now)
		c.messages.AddItem(main, secondary, 0, nil)
	}
}

// scrollMetricsFor converts list geometry into scroll metrics.
func scrollMetricsFor(itemCount, offset, innerHeight int) client.ScrollMetrics {
	visible := innerHeight / linesPerItem
	if visible < 1 {
		visible = 1
	}
	below := itemCount - offset - visible
	if below < 0 {
		below = 0
	}
	return client.ScrollMetrics{
		DistanceFromBottom: float64(below * linesPerItem * rowUnit),
		AverageRowHeight:   linesPerItem * rowUnit,
	}
}

func (c *ChatScreen) measure() client.ScrollMetrics {
	offset, _ := c.messages.GetOffset()
	_, _, _, height := c.messages.GetInnerRect()
	return scrollMetricsFor(c.messages.GetItemCount(), offset, height)
}

// ScrollMetrics samples the list on the UI goroutine. If the loop does not
// answer in time the previous sample is returned.
func (c *ChatScreen) ScrollMetrics() client.ScrollMetrics {
	ch := make(chan client.ScrollMetrics, 1)
	c.App.QueueUpdate(func() { ch <- c.measure() })
	select {
	case m := <-ch:
		c.metricsMu.Lock()
		c.lastMetrics = m
		c.metricsMu.Unlock()
		return m
	case <-time.After(metricsTimeout):
		c.metricsMu.Lock()
		defer c.metricsMu.Unlock()
		return c.lastMetrics
	}
}

func (c *ChatScreen) Reset(msgs []models.Message) {
	msgs = append([]models.Message(nil), msgs...)
	c.App.QueueUpdateDraw(func() {
		offset, _ := c.messages.GetOffset()
		c.messages.Clear()
		c.rows = msgs
		c.addRows(msgs)
		c.messages.SetOffset(min(offset, max(0, len(msgs)-1)), 0)
	})
}

func (c *ChatScreen) Append(msgs []models.Message, startIndex int) {
	msgs = append([]models.Message(nil), msgs...)
	c.App.QueueUpdateDraw(func() {
		if startIndex < len(c.rows) {
			for i := len(c.rows) - 1; i >= startIndex; i-- {
				c.messages.RemoveItem(i)
			}
			c.rows = c.rows[:startIndex]
		}
		c.rows = append(c.rows, msgs...)
		c.addRows(msgs)
	})
}

func (c *ChatScreen) scrollToBottom() {
	n := c.messages.GetItemCount()
	if n == 0 {
		return
	}
	_, _, _, height := c.messages.GetInnerRect()
	visible := max(1, height/linesPerItem)
	c.messages.SetCurrentItem(n - 1)
	c.messages.SetOffset(max(0, n-visible), 0)
	c.chatView.ResizeItem(c.indicator, 0, 0)
}

func (c *ChatScreen) ScrollToBottom() {
	c.App.QueueUpdateDraw(c.scrollToBottom)
}

func (c *ChatScreen) SetNewMessagesIndicator(visible bool) {
	c.App.QueueUpdateDraw(func() {
		size := 0
		if visible {
			size = 1
		}
		c.chatView.ResizeItem(c.indicator, size, 0)
	})
}

// Clear empties the list for a room switch.
func (c *ChatScreen) Clear() {
	c.App.QueueUpdateDraw(func() {
		c.messages.Clear()
		c.rows = nil
		c.chatView.ResizeItem(c.indicator, 0, 0)
	})
	c.metricsMu.Lock()
	c.lastMetrics = client.ScrollMetrics{}
	c.metricsMu.Unlock()
}

// RefreshTimestamps rewrites the relative times without touching scroll.
func (c *ChatScreen) RefreshTimestamps() {
	c.App.QueueUpdateDraw(func() {
		now := c.Now()
		for i, m := range c.rows {
			if i >= c.messages.GetItemCount() {
				break
			}
			main, secondary := formatMessage(c.Theme, m, now)
			c.messages.SetItemText(i, main, secondary)
		}
	})
}
