package repository

import (
	"github.com/dojobill/dojobill/internal/domain/charge"
	"github.com/dojobill/dojobill/internal/domain/collectionrun"
	"github.com/dojobill/dojobill/internal/domain/directory"
	"github.com/dojobill/dojobill/internal/domain/dunning"
	"github.com/dojobill/dojobill/internal/domain/mandate"
	"github.com/dojobill/dojobill/internal/domain/tenant"
	"github.com/dojobill/dojobill/internal/logger"
	"github.com/dojobill/dojobill/internal/postgres"
	postgresRepo "github.com/dojobill/dojobill/internal/repository/postgres"
)

func NewTenantRepository(db *postgres.DB, logger *logger.Logger) tenant.Repository {
	return postgresRepo.NewTenantRepository(db, logger)
}

func NewMandateRepository(db *postgres.DB, logger *logger.Logger) mandate.Repository {
	return postgresRepo.NewMandateRepository(db, logger)
}

func NewChargeRepository(db *postgres.DB, logger *logger.Logger) charge.Repository {
	return postgresRepo.NewChargeRepository(db, logger)
}

func NewCollectionRunRepository(db *postgres.DB, logger *logger.Logger) collectionrun.Repository {
	return postgresRepo.NewCollectionRunRepository(db, logger)
}

func NewDunningRepository(db *postgres.DB, logger *logger.Logger) dunning.Repository {
	return postgresRepo.NewDunningRepository(db, logger)
}

func NewDirectory(db *postgres.DB, logger *logger.Logger) directory.Directory {
	return postgresRepo.NewDirectory(db, logger)
}
