// 手动级联删除课程脚本
//
// 用于运维清理，例如删除测试数据或处理用户注销后遗留的课程。
// 与接口删除走同一套编辑锁与事务，运行期间不会与在线编辑冲突。
//
// 用法: go run scripts/delete_course.go -id <courseID> [-config configs]

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"tutor_market_backend/internal/config"
	"tutor_market_backend/internal/repository"
	"tutor_market_backend/internal/service"
	"tutor_market_backend/pkg/database"
	"tutor_market_backend/pkg/locker"
	"tutor_market_backend/pkg/logger"
)

func main() {
	courseID := flag.String("id", "", "要删除的课程ID")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	if *courseID == "" {
		log.Fatal("请通过 -id 指定课程ID")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis 连接失败: %v", err)
	}
	var lk locker.Locker = locker.NewLocalLocker(cfg.Lock.Wait())
	if rdb != nil {
		defer rdb.Close()
		lk = locker.NewRedisLocker(rdb, cfg.Lock.TTL(), cfg.Lock.Wait())
	}

	content := service.NewCourseContentService(db, repository.NewCourseRepository(db), lk)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Printf("删除课程 %s ...", *courseID)
	if err := content.DeleteCourse(ctx, *courseID); err != nil {
		log.Fatalf("删除失败: %v", err)
	}
	log.Println("完成！")
}
