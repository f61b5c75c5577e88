package mocks

//go:generate mockery --name RunStore --srcpkg github.com/aevon-lab/resampler/internal/aggregation --output ./aggregation --outpkg aggregationmocks --with-expecter
//go:generate mockery --name Source --srcpkg github.com/aevon-lab/resampler/internal/source --output ./source --outpkg sourcemocks --with-expecter
