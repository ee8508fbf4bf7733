// Package etcdop provides a small framework on top of etcd low-level operations.
//
// Operations over one key are defined by the Key type, all keys with a prefix are read by the iterator package.
// Operations can be executed directly by the Do method or composed to a transaction, see op.Txn.
package etcdop
