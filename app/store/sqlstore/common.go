package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/quka-ai/airag/pkg/types"
)

func ErrorSqlBuild(err error) error {
	return fmt.Errorf("failed to build sql query, %w", err)
}

type SqlProviderAchieve interface {
	GetMaster() *sqlx.DB
	GetReplica() *sqlx.DB
}

// CommonFields 各 store 共用的表名、列与连接获取
type CommonFields struct {
	table      string
	provider   SqlProviderAchieve
	allColumns []string
}

func (c *CommonFields) GetTable() string {
	return c.table
}

func (c *CommonFields) SetTable(table types.TableName) {
	c.table = table.Name()
}

func (c *CommonFields) SetAllColumns(str ...string) {
	c.allColumns = str
}

func (c *CommonFields) GetAllColumns() []string {
	return c.allColumns
}

func (c *CommonFields) SetProvider(p SqlProviderAchieve) {
	c.provider = p
}

type Master interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type Replica interface {
	Get(dest any, query string, args ...any) error
	Select(dest any, query string, args ...any) error
}

func (c *CommonFields) GetMaster(ctx context.Context) Master {
	return &dbWithContext{db: c.provider.GetMaster(), ctx: ctx}
}

func (c *CommonFields) GetReplica(ctx context.Context) Replica {
	return &dbWithContext{db: c.provider.GetReplica(), ctx: ctx}
}

// execBuilder 构建并在主库执行
func (c *CommonFields) execBuilder(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	queryString, args, err := b.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}
	return c.GetMaster(ctx).Exec(queryString, args...)
}

type dbWithContext struct {
	db  *sqlx.DB
	ctx context.Context
}

func (d *dbWithContext) Get(dest any, query string, args ...any) error {
	return d.db.GetContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Select(dest any, query string, args ...any) error {
	return d.db.SelectContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Exec(query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(d.ctx, query, args...)
}
