package db

import (
	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/jobs"
)

var (
	_ credentials.Store = (*DB)(nil)
	_ jobs.JobStore     = (*DB)(nil)
)
