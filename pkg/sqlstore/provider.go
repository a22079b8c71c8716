package sqlstore

import (
	"database/sql"
	"errors"
	"math/rand/v2"

	"github.com/jmoiron/sqlx"
)

type ConnectConfig interface {
	FormatDSN() string
}

type SqlProvider struct {
	master   *sqlx.DB
	replicas []*sqlx.DB
}

func (s *SqlProvider) GetMaster() *sqlx.DB {
	return s.master
}

func (s *SqlProvider) GetReplica() *sqlx.DB {
	return s.replicas[rand.IntN(len(s.replicas))]
}

func (s *SqlProvider) initConnection(conf ConnectConfig) (*sqlx.DB, error) {
	return sqlx.Open("postgres", conf.FormatDSN())
}

func MustSetupProvider(m ConnectConfig, s ...ConnectConfig) *SqlProvider {
	provider := &SqlProvider{}

	engine, err := provider.initConnection(m)
	if err != nil {
		panic(err)
	}
	provider.master = engine

	for _, v := range s {
		replica, err := provider.initConnection(v)
		if err != nil {
			panic(err)
		}
		provider.replicas = append(provider.replicas, replica)
	}

	if len(provider.replicas) == 0 {
		provider.replicas = append(provider.replicas, engine)
	}

	return provider
}

// IsNotFound 查询结果为空
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
