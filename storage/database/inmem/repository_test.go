package inmemdb_test

import (
	"testing"

	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryContract(t, func(t *testing.T) testutil.Repos {
		db := inmemdb.Open()
		return testutil.Repos{
			Accounts:  inmemdb.NewAccountRepository(db),
			Profiles:  inmemdb.NewProfileRepository(db),
			Academics: inmemdb.NewAcademicsRepository(db),
			Tx:        db,
		}
	})
}
