package database_test

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantrisk/internal/source"
	"github.com/wonny/quantrisk/pkg/config"
	"github.com/wonny/quantrisk/pkg/database"
)

// Example DB에서 종목 일별 수익률 읽기
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// DATABASE_URL이 없으면 config.ErrDatabaseNotConfigured
	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("database unavailable: %v\n", err)
		return
	}
	defer db.Close()

	to := time.Now()
	returns, err := source.NewPriceRepository(db).Returns(ctx, "005930", to.AddDate(-1, 0, 0), to)
	if err != nil {
		fmt.Printf("returns: %v\n", err)
		return
	}
	fmt.Printf("%d daily returns, pool max conns %d\n", returns.Len(), db.Stats().MaxConns)
}
