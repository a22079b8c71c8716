package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "airag_"

const (
	TABLE_KNOWLEDGE     = TableName("knowledge")
	TABLE_DETAIL_INDEX  = TableName("detail_index")
	TABLE_SUMMARY_INDEX = TableName("summary_index")
)
