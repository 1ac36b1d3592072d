package protocol

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensedash/internal/calculator"
	"github.com/mmynk/expensedash/internal/models"
)

// Sep separates fields within a line.
const Sep = "|"

// Fixed replies.
const (
	RegisterOK    = "REGISTER_OK"
	RegisterDup   = "REGISTER_DUP"
	LoginOK       = "LOGIN_OK"
	LoginFail     = "LOGIN_FAIL"
	SnapshotBegin = "SNAPSHOT_BEGIN"
	SnapshotEnd   = "SNAPSHOT_END"
	SearchBegin   = "SEARCH_BEGIN"
	SearchEnd     = "SEARCH_END"
	JoinDup       = "JOIN_DUP"
)

// Reason codes clients branch on.
const (
	ReasonDuplicate     = "DUPLICATE"
	ReasonUserNotFound  = "USER_NOT_FOUND"
	ReasonGroupNotFound = "GROUP_NOT_FOUND"
	ReasonNotFound      = "NOT_FOUND"
	ReasonNotCreator    = "NOT_CREATOR"
	ReasonNotLoggedIn   = "User not logged in"
	ReasonInvalidAmount = "Invalid amount"
)

var errCodes = map[string]string{
	CmdRegister:        "REGISTER_ERR",
	CmdLogin:           "LOGIN_ERR",
	CmdRequestSnapshot: "SNAPSHOT_ERR",
	CmdAddGroup:        "ADD_GROUP_ERR",
	CmdJoinGroup:       "JOIN_ERR",
	CmdSearchGroup:     "SEARCH_ERR",
	CmdAddExpense:      "ADD_EXPENSE_ERR",
	CmdSettle:          "SETTLE_ERR",
	CmdRequestJoin:     "JOIN_REQUEST_ERR",
	CmdApproveJoin:     "APPROVE_ERR",
	CmdRejectJoin:      "REJECT_ERR",
	CmdBalances:        "BALANCES_ERR",
}

// ErrCode returns the error reply name for a command, e.g. SNAPSHOT_ERR for
// REQUEST_SNAPSHOT.
func ErrCode(cmd string) string {
	if code, ok := errCodes[cmd]; ok {
		return code
	}
	return cmd + "_ERR"
}

// ErrorLine builds <CODE>|msg. Line breaks in msg are flattened.
func ErrorLine(cmd, msg string) string {
	msg = strings.NewReplacer("\r", " ", "\n", " ").Replace(msg)
	return Line(ErrCode(cmd), msg)
}

// Line joins fields with the separator.
func Line(fields ...string) string {
	return strings.Join(fields, Sep)
}

// Amount renders money with exactly two decimals.
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func GroupLine(g models.Group) string {
	return Line("GROUP", id(g.ID), g.Name, g.Category)
}

func MemberLine(m models.Member) string {
	return Line("MEMBER", id(m.ID), m.Name, id(m.GroupID))
}

func ExpenseLine(e models.Expense) string {
	return Line("EXPENSE", id(e.ID), id(e.GroupID), e.Payer, Amount(e.Amount), e.Description)
}

func SplitLine(s models.Split) string {
	return Line("SPLIT", id(s.ExpenseID), id(s.MemberID), Amount(s.Amount))
}

func ResetLine(groupID int64) string {
	return Line("RESET", id(groupID))
}

func AddGroupOKLine(groupID int64) string {
	return Line("ADD_GROUP_OK", id(groupID))
}

func JoinOKLine(memberID int64) string {
	return Line("JOIN_OK", id(memberID))
}

func JoinQueuedLine(groupID int64) string {
	return Line("JOIN_QUEUED", id(groupID))
}

// JoinReqLine notifies a group creator about a pending request.
func JoinReqLine(r models.JoinRequest, g models.Group) string {
	return Line("JOIN_REQ", id(r.ID), id(g.ID), g.Name, r.Username)
}

func ApproveOKLine(requestID int64) string {
	return Line("APPROVE_OK", id(requestID))
}

func RejectOKLine(requestID int64) string {
	return Line("REJECT_OK", id(requestID))
}

func JoinApprovedLine(g models.Group) string {
	return Line("JOIN_APPROVED", id(g.ID), g.Name)
}

func JoinRejectedLine(g models.Group) string {
	return Line("JOIN_REJECTED", id(g.ID), g.Name)
}

// BalanceLines frames the balances and debts of one group.
func BalanceLines(groupID int64, balances []calculator.MemberBalance, debts []calculator.DebtEdge) []string {
	gid := id(groupID)
	lines := make([]string, 0, len(balances)+len(debts)+2)
	lines = append(lines, Line("BALANCES_BEGIN", gid))
	for _, b := range balances {
		lines = append(lines, Line("BALANCE", gid, b.MemberName, Amount(b.TotalPaid), Amount(b.TotalOwed), Amount(b.NetBalance)))
	}
	for _, d := range debts {
		lines = append(lines, Line("DEBT", gid, d.From, d.To, Amount(d.Amount)))
	}
	return append(lines, Line("BALANCES_END", gid))
}
