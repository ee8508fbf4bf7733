package store

type Txn struct {
	Conditions []Condition
	Ops        []Op
}

// Condition of a transaction, the key must have the Version, zero Version means the key must not exist.
type Condition struct {
	Key     string
	Version int64
}

type OpType int

const (
	OpPut OpType = iota + 1
	OpDelete
)

// Op is a write operation of a transaction. Delete of a missing key is a no-op.
type Op struct {
	Type  OpType
	Key   string
	Value []byte
}

func VersionIs(key string, version int64) Condition {
	return Condition{Key: key, Version: version}
}

func NotExists(key string) Condition {
	return Condition{Key: key, Version: 0}
}

func Put(key string, value []byte) Op {
	return Op{Type: OpPut, Key: key, Value: value}
}

func Delete(key string) Op {
	return Op{Type: OpDelete, Key: key}
}

func (t Txn) If(conditions ...Condition) Txn {
	t.Conditions = append(t.Conditions, conditions...)
	return t
}

func (t Txn) Then(ops ...Op) Txn {
	t.Ops = append(t.Ops, ops...)
	return t
}

// Size is the number of operations counted against the MaxTxnOps limit.
func (t Txn) Size() int {
	return max(len(t.Conditions), len(t.Ops))
}

func (t Txn) Keys() []string {
	keys := make([]string, 0, len(t.Ops))
	for _, op := range t.Ops {
		keys = append(keys, op.Key)
	}
	return keys
}
