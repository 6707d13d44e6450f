package mocks

//go:generate mockery --name OrderQueue --srcpkg github.com/storefront-lab/orders/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name OrderStore --srcpkg github.com/storefront-lab/orders/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name StatisticsCache --srcpkg github.com/storefront-lab/orders/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
