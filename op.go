package atomcheck

import "strconv"

// Op tags one kind of atomic operation. OpStart is the synthetic tag a
// process is pending on before its first resumption.
type Op uint8

const (
	OpStart Op = iota
	OpMake
	OpGet
	OpSet
	OpExchange
	OpCompareAndSwap
	OpFetchAndAdd
)

var opNames = [...]string{
	OpStart:          "start",
	OpMake:           "make",
	OpGet:            "get",
	OpSet:            "set",
	OpExchange:       "exchange",
	OpCompareAndSwap: "compare_and_swap",
	OpFetchAndAdd:    "fetch_and_add",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// noObject marks an operation that references no cell (Start, and Make
// before its cell exists). Object-ids are dense and start at 1.
const noObject = 0

func objString(obj int) string {
	if obj == noObject {
		return ""
	}
	return strconv.Itoa(obj)
}
