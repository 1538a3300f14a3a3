package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
	"github.com/sapogeth/qylysh-higgsfiled/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化存储（PostgreSQL 必需，Milvus / Redis 可选）
	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer cleanup()

	// 3. 同步评估记录表结构
	if err := deps.Postgres.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	fmt.Println("Evaluation tables are up to date.")

	// 4. 生成归档集合与索引
	if deps.Archive != nil {
		if err := deps.Archive.EnsureCollection(ctx); err != nil {
			log.Fatalf("failed to ensure milvus collection: %v", err)
		}
		fmt.Println("Generation archive collection is ready.")
	} else {
		fmt.Println("Milvus disabled, skipping generation archive.")
	}

	// 5. 参考肖像检查
	missing := missingFiles(cfg.Evaluation.ReferenceImages)
	if len(missing) > 0 {
		fmt.Printf("WARNING: %d reference image(s) missing, evaluation will be disabled: %s\n",
			len(missing), strings.Join(missing, ", "))
	} else {
		fmt.Printf("All %d reference images found.\n", len(cfg.Evaluation.ReferenceImages))
	}

	// 6. 更换编码模型后清理向量缓存
	if os.Getenv("BOOTSTRAP_FLUSH_EMBEDDING_CACHE") == "true" {
		if deps.Cache == nil {
			fmt.Println("Redis unavailable, embedding cache not flushed.")
		} else {
			n, err := deps.Cache.InvalidatePrefix(ctx, cfg.Cache.Embedding.KeyPrefix)
			if err != nil {
				log.Fatalf("failed to flush embedding cache: %v", err)
			}
			fmt.Printf("Flushed %d cached embeddings.\n", n)
		}
	}

	fmt.Println("Bootstrap completed successfully.")
}

func missingFiles(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}
