// Package keypad runs the local PIN menu: a pure transition table over
// keypad input and a controller that polls the keypad, draws the menu on
// the display and applies the resulting lock and unlock requests.
package keypad

import (
	"fmt"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/server/hardware"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

// Mode is the menu screen the keypad is on.
type Mode int

const (
	ModeMain Mode = iota
	ModeSelect
	ModeEnterCode
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeEnterCode:
		return "enter_code"
	}
	return "main"
}

// Action is what the user picked on the main menu.
type Action int

const (
	ActionOpen Action = iota
	ActionClose
)

func (a Action) String() string {
	if a == ActionClose {
		return "close"
	}
	return "open"
}

// State is the whole menu state. Locker and Code only mean something in
// ModeEnterCode.
type State struct {
	Mode   Mode
	Action Action
	Locker int
	Code   string
}

// Main is the idle menu.
var Main = State{Mode: ModeMain}

// CommandKind says what the controller has to do after a transition.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdNotice
	CmdLock
	CmdUnlock
)

// Command is the side effect of one transition.
type Command struct {
	Kind   CommandKind
	Locker int
	Code   string
	Notice string
}

// Lookup reports the lock state of a locker and whether it exists.
type Lookup func(id int) (models.LockState, bool)

// Display texts.
const (
	screenMain   = "Menu:\nA=Open B=Close"
	screenOpen   = "Open:\n1-4 #=back"
	screenClose  = "Close:\n1-4 #=back"
	screenCodeFm = "L:%d\nK:%s"

	NoticeNoSuchLocker  = "No such\nlocker!"
	NoticeAlreadyOpen   = "Already open"
	NoticeAlreadyClosed = "Already closed"
	NoticeWrongCode     = "Wrong code!"
	NoticeFailed        = "Error\ntry again"
	NoticeBadSelectKey  = "Bad key\n1-4,#=back"
	NoticeBadCodeKey    = "Bad key\n0-9,A,B,#"
)

// NoticeOpened and NoticeClosed confirm a finished actuation. Lockers are
// numbered from 1 on the keypad.
func NoticeOpened(id int) string { return fmt.Sprintf("L.%d\nopened!", id+1) }
func NoticeClosed(id int) string { return fmt.Sprintf("L.%d\nclosed", id+1) }

// Screen is the text drawn for s.
func (s State) Screen() string {
	switch s.Mode {
	case ModeSelect:
		if s.Action == ActionClose {
			return screenClose
		}
		return screenOpen
	case ModeEnterCode:
		return fmt.Sprintf(screenCodeFm, s.Locker+1, s.Code)
	}
	return screenMain
}

// Transition applies one key press. It never touches hardware or the
// registry; lookup is only consulted to pick a locker.
func Transition(s State, k hardware.Key, lookup Lookup) (State, Command) {
	switch s.Mode {
	case ModeSelect:
		return selectLocker(s, k, lookup)
	case ModeEnterCode:
		return enterCode(s, k)
	}

	switch k {
	case 'A':
		return State{Mode: ModeSelect, Action: ActionOpen}, Command{}
	case 'B':
		return State{Mode: ModeSelect, Action: ActionClose}, Command{}
	}
	return s, Command{}
}

func selectLocker(s State, k hardware.Key, lookup Lookup) (State, Command) {
	switch {
	case k == '#':
		return Main, Command{}
	case k < '1' || k > '4':
		return s, notice(NoticeBadSelectKey)
	}

	id := int(k - '1')
	status, ok := lookup(id)
	if !ok {
		return Main, notice(NoticeNoSuchLocker)
	}

	if s.Action == ActionClose {
		// Closing needs no code. An already locked locker is reported by the
		// registry as a conflict.
		return Main, Command{Kind: CmdLock, Locker: id}
	}
	if status == models.Unlocked {
		return Main, notice(NoticeAlreadyOpen)
	}
	return State{Mode: ModeEnterCode, Action: ActionOpen, Locker: id}, Command{}
}

func enterCode(s State, k hardware.Key) (State, Command) {
	switch {
	case k.IsDigit():
		if len(s.Code) < common.PinLength {
			s.Code += string(rune(k))
		}
		return s, Command{}
	case k == 'B':
		if s.Code != "" {
			s.Code = s.Code[:len(s.Code)-1]
		}
		return s, Command{}
	case k == '#':
		return Main, Command{}
	case k == 'A':
		return Main, Command{Kind: CmdUnlock, Locker: s.Locker, Code: s.Code}
	}
	return s, notice(NoticeBadCodeKey)
}

func notice(msg string) Command {
	return Command{Kind: CmdNotice, Notice: msg}
}
