/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、配置加载、缓存后端选择和评估服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 数据库连接 -> 表迁移 -> 配置加载 -> 语料库索引构建 -> 评估服务装配 -> 维护调度启动
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"rulehub-service/client/connectors"
	"rulehub-service/service/config"
	"rulehub-service/service/corpus"
	"rulehub-service/service/evaluation"
	"rulehub-service/service/maintenance"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalConfigStore        *config.ConfigStore
	GlobalCorpusStore        *corpus.Store
	GlobalResultCache        evaluation.ResultCache
	GlobalKafkaPublisher     *connectors.KafkaResultPublisher
	GlobalEvaluationService  *evaluation.EvaluationService
	GlobalMaintenanceService *maintenance.MaintenanceService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := corpus.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	// 加载评估配置，文件缺失或非法时使用内置默认值
	GlobalConfigStore = config.NewConfigStore()
	configFile := getEnvWithDefault("EVAL_CONFIG_FILE", "config/evaluation.yaml")
	if err := GlobalConfigStore.LoadFromFile(configFile); err != nil {
		log.Printf("评估配置文件加载失败，使用默认配置: %v", err)
	}

	// 构建语料库索引
	GlobalCorpusStore = corpus.NewStore(DB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := GlobalCorpusStore.Reload(ctx); err != nil {
		log.Fatalf("语料库索引构建失败: %v", err)
	}

	// 选择结果缓存后端
	GlobalResultCache = initResultCache()

	// Kafka结果外发（可选）
	var publisher evaluation.ResultPublisher
	if getEnvWithDefault("EVAL_KAFKA_ENABLED", "false") == "true" {
		GlobalKafkaPublisher = connectors.NewKafkaResultPublisher(nil)
		publisher = GlobalKafkaPublisher
		log.Println("Kafka评估结果发布器已启用")
	}

	// 装配评估服务，语义提供方缺省使用词法回退
	GlobalEvaluationService = evaluation.NewEvaluationService(
		GlobalConfigStore, GlobalCorpusStore, GlobalResultCache, nil, publisher)

	// 启动后台维护任务
	GlobalMaintenanceService = maintenance.NewMaintenanceService(GlobalEvaluationService)
	if err := GlobalMaintenanceService.Start(); err != nil {
		log.Printf("启动维护调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// initResultCache 按环境变量选择缓存后端，Redis不可用时回退内存缓存
func initResultCache() evaluation.ResultCache {
	if getEnvWithDefault("EVAL_CACHE_BACKEND", "memory") == "redis" {
		redisCache, err := evaluation.NewRedisCache()
		if err != nil {
			log.Printf("Redis缓存初始化失败，回退内存缓存: %v", err)
		} else {
			log.Println("评估结果缓存使用Redis后端")
			return redisCache
		}
	}
	return evaluation.NewMemoryCache()
}
