package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"gorm.io/gorm"
)

// DocumentService stores evidence files attached to question responses in S3
// and records the resulting URL on the response row.
type DocumentService struct {
	s3Client *s3.S3
	db       *gorm.DB
}

// NewDocumentService initializes the S3 client from environment configuration.
func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	region := os.Getenv("S3_REGION")
	endpoint := os.Getenv("S3_ENDPOINT")
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")

	if region == "" || endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing required S3 configuration environment variables")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		DisableSSL:       aws.Bool(false),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &DocumentService{s3Client: s3.New(sess), db: db}, nil
}

// UploadEvidence uploads a file and appends its URL to the response's
// documents list, creating the response row if the question has none yet.
func (s *DocumentService) UploadEvidence(tenantID, actorID, assignmentID, questionID string, file multipart.File, header *multipart.FileHeader) (string, error) {
	var assignment model.AssessmentAssignment
	if err := s.db.Where("id = ? AND tenant_id = ?", assignmentID, tenantID).First(&assignment).Error; err != nil {
		return "", fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return "", fmt.Errorf("bucket name not configured")
	}

	fileID := fmt.Sprintf("%d-%s", time.Now().Unix(), header.Filename)
	uploadInput := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(fileID),
		Body:        bytes.NewReader(fileBytes),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(header.Header.Get("Content-Type")),
	}
	if _, err := s.s3Client.PutObject(uploadInput); err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	fileURL := fmt.Sprintf("%s/object/public/%s/%s", os.Getenv("S3_PUBLIC_URL"), bucket, fileID)
	log.Printf("[UploadEvidence] Evidence stored at: %s", fileURL)

	var response model.AssessmentQuestionResponse
	err = s.db.Where("assignment_id = ? AND question_id = ?", assignmentID, questionID).First(&response).Error
	if err != nil {
		response = model.AssessmentQuestionResponse{
			TenantID:     tenantID,
			AssignmentID: assignmentID,
			QuestionID:   questionID,
			OwnerID:      actorID,
		}
	}

	var docs []string
	if len(response.Documents) > 0 {
		if err := json.Unmarshal(response.Documents, &docs); err != nil {
			log.Printf("[UploadEvidence] Error unmarshaling documents for response %s: %v", response.ID, err)
			docs = nil
		}
	}
	docs = append(docs, fileURL)
	blob, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal documents: %w", err)
	}
	response.Documents = blob
	response.UpdatedAt = time.Now()

	if response.ID == "" {
		if err := s.db.Create(&response).Error; err != nil {
			return "", fmt.Errorf("failed to create response row: %w", err)
		}
	} else if err := s.db.Save(&response).Error; err != nil {
		return "", fmt.Errorf("failed to update response row: %w", err)
	}

	return fileURL, nil
}
