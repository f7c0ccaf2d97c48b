package ir

import "fmt"

// EvalBinary computes op on two values of type t using the width's modular arithmetic
func EvalBinary(op BinaryOp, t *IntType, a, b int64) (int64, error) {
	var r int64
	switch op {
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	case OpAnd:
		r = a & b
	case OpOr:
		r = a | b
	case OpXor:
		r = a ^ b
	default:
		return 0, fmt.Errorf("unknown binary operation %q", op)
	}
	return t.Wrap(r), nil
}

// EvalCompare computes a signed comparison of two values already wrapped to their width
func EvalCompare(pred Predicate, a, b int64) (bool, error) {
	switch pred {
	case PredEQ:
		return a == b, nil
	case PredNE:
		return a != b, nil
	case PredSLT:
		return a < b, nil
	case PredSLE:
		return a <= b, nil
	case PredSGT:
		return a > b, nil
	case PredSGE:
		return a >= b, nil
	}
	return false, fmt.Errorf("unknown comparison predicate %q", pred)
}

// LookupBinaryOp maps an opcode name from the textual form
func LookupBinaryOp(name string) (BinaryOp, bool) {
	switch op := BinaryOp(name); op {
	case OpAdd, OpSub, OpMul, OpAnd, OpOr, OpXor:
		return op, true
	}
	return "", false
}

// LookupPredicate maps a predicate name from the textual form
func LookupPredicate(name string) (Predicate, bool) {
	switch p := Predicate(name); p {
	case PredEQ, PredNE, PredSLT, PredSLE, PredSGT, PredSGE:
		return p, true
	}
	return "", false
}
