package biz

import (
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Slowmode *usecase.SlowmodeUsecase
	Policy   *usecase.PolicyUsecase
}
