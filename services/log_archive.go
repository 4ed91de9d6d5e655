package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"madrese_go/database"
	"madrese_go/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LogArchiveService flushes Redis-cached activity logs into the database and
// archives old rows into zipped CSVs on S3.
type LogArchiveService struct {
	redisClient *redis.Client
	awsConfig   aws.Config
	cron        *cron.Cron
}

// NewLogArchiveService creates a new service instance
func NewLogArchiveService() *LogArchiveService {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; S3 operations will fail until configured")
	}

	return &LogArchiveService{
		redisClient: database.GetRedisClient(),
		awsConfig:   cfg,
	}
}

// FlushCachedLogsToDatabase moves logs from the Redis cache to the database.
func (las *LogArchiveService) FlushCachedLogsToDatabase() error {
	if las.redisClient == nil {
		return fmt.Errorf("redis client not available")
	}

	ctx := context.Background()
	cutoffTime := time.Now().Add(-24 * time.Hour)

	expiredLogs, err := las.redisClient.ZRangeByScore(ctx, "logs:queue", &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", cutoffTime.Unix()),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get expired logs: %v", err)
	}

	logrus.Infof("Processing %d expired cached logs", len(expiredLogs))

	var errorCount int
	for _, logKey := range expiredLogs {
		logData, err := las.redisClient.Get(ctx, logKey).Result()
		if err != nil {
			if err != redis.Nil {
				logrus.WithError(err).Errorf("Failed to get log data for key: %s", logKey)
				errorCount++
			}
			continue
		}

		var activityLog models.ActivityLog
		if err := json.Unmarshal([]byte(logData), &activityLog); err != nil {
			logrus.WithError(err).Errorf("Failed to unmarshal log data for key: %s", logKey)
			errorCount++
			continue
		}

		if err := database.DB.Create(&activityLog).Error; err != nil {
			logrus.WithError(err).Error("Failed to save log to database")
			errorCount++
			continue
		}

		pipeline := las.redisClient.Pipeline()
		pipeline.Del(ctx, logKey)
		pipeline.ZRem(ctx, "logs:queue", logKey)
		if _, err := pipeline.Exec(ctx); err != nil {
			logrus.WithError(err).Errorf("Failed to remove log from cache: %s", logKey)
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("flush finished with %d errors", errorCount)
	}
	return nil
}

// ArchiveOldLogs zips activity logs older than retentionDays into a CSV,
// uploads it to S3 and deletes the archived rows.
func (las *LogArchiveService) ArchiveOldLogs(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var logs []models.ActivityLog
	if err := database.DB.Preload("User").
		Where("created_at < ?", cutoff).
		Order("created_at").
		Find(&logs).Error; err != nil {
		return fmt.Errorf("failed to load old logs: %v", err)
	}
	if len(logs) == 0 {
		return nil
	}

	startDate := logs[0].CreatedAt
	endDate := logs[len(logs)-1].CreatedAt
	fileName := fmt.Sprintf("activity-logs_%s_%s.zip",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	s3Key := fmt.Sprintf("log-archives/%d/%s", startDate.Year(), fileName)

	archive := models.LogArchive{
		FileName:    fileName,
		S3Key:       s3Key,
		StartDate:   startDate,
		EndDate:     endDate,
		RecordCount: len(logs),
		Status:      "pending",
	}
	if err := database.DB.Create(&archive).Error; err != nil {
		return fmt.Errorf("failed to record archive: %v", err)
	}

	buf, err := las.buildArchive(logs)
	if err != nil {
		database.DB.Model(&archive).Updates(map[string]interface{}{"status": "failed", "error": err.Error()})
		return err
	}

	if err := las.uploadToS3(s3Key, buf); err != nil {
		database.DB.Model(&archive).Updates(map[string]interface{}{"status": "failed", "error": err.Error()})
		return fmt.Errorf("failed to upload archive: %v", err)
	}

	if err := database.DB.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{}).Error; err != nil {
		logrus.WithError(err).Error("Archived logs uploaded but old rows were not deleted")
	}

	return database.DB.Model(&archive).Updates(map[string]interface{}{
		"status":    "completed",
		"file_size": int64(buf.Len()),
	}).Error
}

// buildArchive renders logs as a CSV inside a zip.
func (las *LogArchiveService) buildArchive(logs []models.ActivityLog) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	zipWriter := zip.NewWriter(buf)

	csvFile, err := zipWriter.Create("activity_logs.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV in archive: %v", err)
	}

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"id", "user_id", "username", "action", "resource", "resource_id", "ip_address", "user_agent", "created_at", "details"}); err != nil {
		return nil, err
	}
	for _, l := range logs {
		details := ""
		if !l.Details.IsNull() {
			details = string(l.Details)
		}
		row := []string{
			fmt.Sprintf("%d", l.ID),
			fmt.Sprintf("%d", l.UserID),
			l.User.Username,
			l.Action,
			l.Resource,
			fmt.Sprintf("%d", l.ResourceID),
			l.IPAddress,
			l.UserAgent,
			l.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ZIP writer: %v", err)
	}
	return buf, nil
}

func (las *LogArchiveService) uploadToS3(key string, data *bytes.Buffer) error {
	if las.awsConfig.Region == "" {
		return fmt.Errorf("AWS not configured")
	}

	s3Client := s3.NewFromConfig(las.awsConfig)
	bucketName := os.Getenv("S3_BUCKET_NAME")

	_, err := s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucketName,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String("application/zip"),
	})
	return err
}

func (las *LogArchiveService) downloadFromS3(key string) (io.ReadCloser, error) {
	if las.awsConfig.Region == "" {
		return nil, fmt.Errorf("AWS not configured")
	}

	s3Client := s3.NewFromConfig(las.awsConfig)
	bucketName := os.Getenv("S3_BUCKET_NAME")

	result, err := s3Client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &bucketName,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// GetArchivedLogs retrieves the list of archived log files.
func (las *LogArchiveService) GetArchivedLogs() ([]models.LogArchive, error) {
	var archives []models.LogArchive
	if err := database.DB.Order("created_at DESC").Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve archived logs: %v", err)
	}
	return archives, nil
}

// DownloadArchivedLogs streams a specific archive from S3.
func (las *LogArchiveService) DownloadArchivedLogs(archiveID uint) (io.ReadCloser, string, error) {
	var archive models.LogArchive
	if err := database.DB.First(&archive, archiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", fmt.Errorf("archive not found")
		}
		return nil, "", fmt.Errorf("failed to retrieve archive: %v", err)
	}

	reader, err := las.downloadFromS3(archive.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive from S3: %v", err)
	}
	return reader, archive.FileName, nil
}

// StartLogMaintenanceScheduler flushes hourly and archives nightly via cron.
func (las *LogArchiveService) StartLogMaintenanceScheduler() {
	las.cron = cron.New()

	if _, err := las.cron.AddFunc("@hourly", func() {
		if err := las.FlushCachedLogsToDatabase(); err != nil {
			logrus.WithError(err).Warn("periodic FlushCachedLogsToDatabase failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule log flush job")
	}

	if _, err := las.cron.AddFunc("30 2 * * *", func() {
		if err := las.ArchiveOldLogs(30); err != nil {
			logrus.WithError(err).Warn("periodic ArchiveOldLogs failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule log archive job")
	}

	las.cron.Start()

	// Run the flush once at boot so a restart never strands cached logs.
	go func() {
		if err := las.FlushCachedLogsToDatabase(); err != nil {
			logrus.WithError(err).Warn("initial FlushCachedLogsToDatabase failed")
		}
	}()
}
