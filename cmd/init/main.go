package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"coffee-backend/infra"
	"coffee-backend/model"
	"coffee-backend/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// 自動尋找配置檔位置
var configPaths = []string{
	"config.yml",       // 當前目錄
	"../config.yml",    // 上層目錄
	"../../config.yml", // cmd/init 底下執行
}

func main() {
	var seed bool
	var username string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "建立資料表，並可選擇寫入範例資料",
		RunE: func(cmd *cobra.Command, args []string) error {
			usedPath := findConfig()
			if err := infra.LoadConfigFrom(usedPath, ".env"); err != nil {
				return fmt.Errorf("讀取 %s 失敗: %w", usedPath, err)
			}
			infra.InitLogger()
			log.Info().Str("config", usedPath).Msg("✅ 已載入設定")

			dbConfig := infra.DatabaseConfigFromApp(infra.AppConfig)
			if err := infra.RunMigrations(dbConfig, log.Logger); err != nil {
				return fmt.Errorf("migration 失敗: %w", err)
			}

			if !seed {
				return nil
			}
			return seedSample(cmd.Context(), dbConfig, username)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "寫入一包範例咖啡豆與一杯紀錄")
	cmd.Flags().StringVar(&username, "username", "demo", "範例杯數紀錄的使用者")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// findConfig 回傳第一個存在的設定檔，都不存在時回傳預設路徑
func findConfig() string {
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return configPaths[0]
}

func seedSample(ctx context.Context, dbConfig infra.DatabaseConfig, username string) error {
	db, err := infra.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	// 有 Redis 時順便讓線上服務的杯數快取失效
	var client *redis.Client
	if r, err := infra.NewRedis(infra.RedisConfig{
		Addr:     infra.AppConfig.Redis.Addr,
		Password: infra.AppConfig.Redis.Password,
		DB:       infra.AppConfig.Redis.DB,
	}); err == nil {
		defer r.Close()
		client = r.Client
	}

	cache := service.NewCountCacheService(log.Logger, client, 0)
	coffeeService := service.NewCoffeeService(log.Logger, db)
	cupService := service.NewCupService(log.Logger, db, cache, nil)

	price := 14.5
	origin := "Ethiopia"
	roastedAt := time.Now().AddDate(0, 0, -7)
	roast := model.NewDate(roastedAt.Year(), roastedAt.Month(), roastedAt.Day())
	coffee, err := coffeeService.CreateCoffee(ctx, &model.Coffee{
		RoastingFacility: "Sample Roastery",
		CoffeeName:       "House Blend",
		SizeG:            250,
		RoastDate:        &roast,
		Price:            &price,
		CountryOfOrigin:  &origin,
	})
	if err != nil {
		return fmt.Errorf("建立範例咖啡豆失敗: %w", err)
	}

	cup, err := cupService.CreateCup(ctx, &model.Cup{
		DateTime: time.Now().UTC(),
		Username: username,
		CoffeeID: coffee.ID,
	})
	if err != nil {
		return fmt.Errorf("建立範例杯數紀錄失敗: %w", err)
	}

	log.Info().
		Int64("coffee_id", coffee.ID).
		Int64("cup_id", cup.ID).
		Msg("✅ 範例資料已建立")
	return nil
}
