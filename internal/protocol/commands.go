// Package protocol defines the line-oriented wire format spoken between
// clients and the sync server.
//
// Every line is a sequence of fields separated by '|'. The first field names
// the command. Parse turns a raw line into one of a closed set of typed
// commands; the formatting helpers in lines.go build the server's replies.
package protocol

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Command names as they appear on the wire.
const (
	CmdRegister        = "REGISTER"
	CmdLogin           = "LOGIN"
	CmdRequestSnapshot = "REQUEST_SNAPSHOT"
	CmdAddGroup        = "ADD_GROUP"
	CmdJoinGroup       = "JOIN_GROUP"
	CmdSearchGroup     = "SEARCH_GROUP"
	CmdAddExpense      = "ADD_EXPENSE"
	CmdSettle          = "SETTLE"
	CmdRequestJoin     = "REQUEST_JOIN"
	CmdApproveJoin     = "APPROVE_JOIN"
	CmdRejectJoin      = "REJECT_JOIN"
	CmdBalances        = "BALANCES"
)

// Command is a parsed client request. The set of implementations is closed.
type Command interface {
	Name() string
	command()
}

type Register struct {
	Username string
	Token    string
}

type Login struct {
	Username string
	Token    string
}

type RequestSnapshot struct{}

type AddGroup struct {
	GroupName string
	Category  string
}

type JoinGroup struct {
	GroupID  int64
	Username string
}

type SearchGroup struct {
	Query string
}

type AddExpense struct {
	GroupID     int64
	Payer       string
	Amount      decimal.Decimal
	Description string
}

type Settle struct {
	GroupID int64
}

// RequestJoin asks the group's creator to admit the logged-in user.
type RequestJoin struct {
	GroupID int64
}

type ApproveJoin struct {
	RequestID int64
}

type RejectJoin struct {
	RequestID int64
}

// Balances asks for per-member totals and the simplified debt list of a group.
type Balances struct {
	GroupID int64
}

func (Register) Name() string        { return CmdRegister }
func (Login) Name() string           { return CmdLogin }
func (RequestSnapshot) Name() string { return CmdRequestSnapshot }
func (AddGroup) Name() string        { return CmdAddGroup }
func (JoinGroup) Name() string       { return CmdJoinGroup }
func (SearchGroup) Name() string     { return CmdSearchGroup }
func (AddExpense) Name() string      { return CmdAddExpense }
func (Settle) Name() string          { return CmdSettle }
func (RequestJoin) Name() string     { return CmdRequestJoin }
func (ApproveJoin) Name() string     { return CmdApproveJoin }
func (RejectJoin) Name() string      { return CmdRejectJoin }
func (Balances) Name() string        { return CmdBalances }

func (Register) command()        {}
func (Login) command()           {}
func (RequestSnapshot) command() {}
func (AddGroup) command()        {}
func (JoinGroup) command()       {}
func (SearchGroup) command()     {}
func (AddExpense) command()      {}
func (Settle) command()          {}
func (RequestJoin) command()     {}
func (ApproveJoin) command()     {}
func (RejectJoin) command()      {}
func (Balances) command()        {}

// arity is the number of fields each command is split into. The last field
// keeps any further separators, so free text may contain '|'.
var arity = map[string]int{
	CmdRegister:        3,
	CmdLogin:           3,
	CmdRequestSnapshot: 1,
	CmdAddGroup:        3,
	CmdJoinGroup:       3,
	CmdSearchGroup:     2,
	CmdAddExpense:      5,
	CmdSettle:          2,
	CmdRequestJoin:     2,
	CmdApproveJoin:     2,
	CmdRejectJoin:      2,
	CmdBalances:        2,
}

// Parse decodes one line. A trailing carriage return is ignored.
// Unrecognized command names yield an error wrapping ErrUnknownCommand;
// malformed fields yield a *ParseError.
func Parse(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\r")

	name, _, _ := strings.Cut(line, Sep)
	n, ok := arity[name]
	if !ok {
		return nil, unknownCommand(name)
	}
	f := fields(strings.SplitN(line, Sep, n))

	switch name {
	case CmdRegister, CmdLogin:
		user, token := f.at(1), f.at(2)
		if user == "" {
			return nil, parseErr(name, "Missing username")
		}
		if len(f) < 3 {
			return nil, parseErr(name, "Missing token")
		}
		if name == CmdRegister {
			return Register{Username: user, Token: token}, nil
		}
		return Login{Username: user, Token: token}, nil

	case CmdRequestSnapshot:
		return RequestSnapshot{}, nil

	case CmdAddGroup:
		groupName := strings.TrimSpace(f.at(1))
		if groupName == "" {
			return nil, parseErr(name, "Missing group name")
		}
		return AddGroup{GroupName: groupName, Category: f.at(2)}, nil

	case CmdJoinGroup:
		id, err := f.id(name, 1, "group id")
		if err != nil {
			return nil, err
		}
		user := f.at(2)
		if user == "" {
			return nil, parseErr(name, "Missing username")
		}
		return JoinGroup{GroupID: id, Username: user}, nil

	case CmdSearchGroup:
		return SearchGroup{Query: f.at(1)}, nil

	case CmdAddExpense:
		id, err := f.id(name, 1, "group id")
		if err != nil {
			return nil, err
		}
		payer := f.at(2)
		if payer == "" {
			return nil, parseErr(name, "Missing payer")
		}
		if f.at(3) == "" {
			return nil, parseErr(name, "Missing amount")
		}
		amount, ok := parseAmount(f.at(3))
		if !ok {
			return nil, parseErr(name, "Invalid amount")
		}
		return AddExpense{GroupID: id, Payer: payer, Amount: amount, Description: f.at(4)}, nil

	case CmdSettle, CmdRequestJoin, CmdBalances:
		id, err := f.id(name, 1, "group id")
		if err != nil {
			return nil, err
		}
		switch name {
		case CmdSettle:
			return Settle{GroupID: id}, nil
		case CmdRequestJoin:
			return RequestJoin{GroupID: id}, nil
		default:
			return Balances{GroupID: id}, nil
		}

	case CmdApproveJoin, CmdRejectJoin:
		id, err := f.id(name, 1, "request id")
		if err != nil {
			return nil, err
		}
		if name == CmdApproveJoin {
			return ApproveJoin{RequestID: id}, nil
		}
		return RejectJoin{RequestID: id}, nil
	}

	return nil, unknownCommand(name)
}

type fields []string

func (f fields) at(i int) string {
	if i < len(f) {
		return f[i]
	}
	return ""
}

func (f fields) id(cmd string, i int, what string) (int64, error) {
	raw := strings.TrimSpace(f.at(i))
	if raw == "" {
		return 0, parseErr(cmd, "Missing "+what)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, parseErr(cmd, "Invalid "+what)
	}
	return id, nil
}

// maxAmountLen bounds the amount field before any decimal arithmetic.
const maxAmountLen = 32

// parseAmount accepts plain decimal notation only: an optional sign, digits
// and at most one decimal point. Exponents are rejected.
func parseAmount(raw string) (decimal.Decimal, bool) {
	if raw == "" || len(raw) > maxAmountLen {
		return decimal.Decimal{}, false
	}
	digits, dots := 0, 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		case (r == '-' || r == '+') && i == 0:
		default:
			return decimal.Decimal{}, false
		}
	}
	if digits == 0 || dots > 1 {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}
