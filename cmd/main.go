package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/api/graph"
	"github.com/lvdashuaibi/campusvote/internal/clock"
	intkafka "github.com/lvdashuaibi/campusvote/internal/kafka"
	"github.com/lvdashuaibi/campusvote/internal/lock"
	"github.com/lvdashuaibi/campusvote/internal/notify"
	"github.com/lvdashuaibi/campusvote/internal/repository"
	"github.com/lvdashuaibi/campusvote/internal/scheduler"
	"github.com/lvdashuaibi/campusvote/internal/service"
)

const startupTimeout = 30 * time.Second

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
	migrate    = flag.Bool("migrate", true, "启动时创建缺失的表")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("配置加载成功: %s", *configPath)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// 创建数据库连接
	sqlRepo, err := repository.NewMySQLRepository(cfg.MySQL)
	if err != nil {
		log.Fatalf("初始化MySQL仓库失败: %v", err)
	}
	defer sqlRepo.Close()
	if *migrate {
		if err := sqlRepo.Migrate(ctx); err != nil {
			log.Fatalf("创建表结构失败: %v", err)
		}
	}
	log.Printf("MySQL仓库初始化成功")

	// 创建Redis连接，不可用时正式结果不走缓存
	var cache service.ResultsCache
	redisRepo, err := repository.NewRedisRepository(ctx, cfg.Redis)
	if err != nil {
		log.Printf("初始化Redis仓库失败，正式结果缓存已禁用: %v", err)
	} else {
		defer redisRepo.Close()
		cache = redisRepo
		log.Printf("Redis仓库初始化成功")
	}

	// 创建分布式锁
	distributedLock, err := lock.New(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化分布式锁失败: %v", err)
	}
	defer distributedLock.Close()
	log.Printf("分布式锁初始化成功，类型: %s", cfg.Lock.Backend)

	// 创建Kafka生产者，未配置时通知直接丢弃
	var dispatcher notify.Dispatcher = notify.Nop{}
	producer, err := intkafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Printf("初始化Kafka生产者失败，通知已禁用: %v", err)
	} else {
		defer producer.Close()
		dispatcher = producer

		// 创建Kafka消费者，负责发送邮件
		consumer := intkafka.NewConsumer(cfg.Kafka, notify.NewSMTPMailer(cfg.SMTP))
		consumer.Start()
		defer consumer.Stop()
	}

	// 创建业务服务
	clk := clock.Real()
	statusSync := service.NewStatusSynchronizer(sqlRepo, clk)
	resolver := graph.NewResolver(graph.Services{
		Elections: service.NewElectionService(sqlRepo, clk, statusSync, dispatcher),
		Candidacy: service.NewCandidacyService(sqlRepo, clk),
		Votes:     service.NewVoteService(sqlRepo, clk, dispatcher),
		Results:   service.NewResultsService(sqlRepo, cache, statusSync),
		Users:     service.NewUserService(sqlRepo),
	})
	log.Printf("业务服务初始化成功")

	// 启动选举状态定时刷新（多实例时只有持有锁的实例执行）
	statusScheduler := scheduler.NewStatusScheduler(statusSync, distributedLock, cfg.Sync)
	statusScheduler.Start()
	defer statusScheduler.Stop()

	// 创建GraphQL服务
	graphqlServer := graph.NewGraphQLServer(*cfg, resolver)

	// 启动HTTP服务器(异步)
	go func() {
		if err := graphqlServer.Start(); err != nil {
			log.Fatalf("启动GraphQL服务器失败: %v", err)
		}
	}()

	log.Printf("Campus Vote 系统已启动，服务地址: http://localhost:%d", cfg.Server.Port)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := graphqlServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭GraphQL服务器失败: %v", err)
	}
}
