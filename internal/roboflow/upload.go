package roboflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lewtec/labelsync/internal/domain"
)

// UploadImage uploads the image and, when it has boxes, its annotation.
// A rejection by the API comes back as an unsuccessful UploadResult; only
// transport and decoding problems are returned as errors.
func (c *Client) UploadImage(ctx context.Context, projectID string, data []byte, fileName string, annotation domain.ConvertedAnnotation) (domain.UploadResult, error) {
	project := projectSlug(projectID)
	if project == "" {
		return domain.UploadResult{Error: "empty project id"}, nil
	}

	result, err := c.uploadImage(ctx, project, data, fileName)
	if err != nil || !result.Success {
		return result, err
	}
	if annotation.Empty() {
		return result, nil
	}

	annotated, err := c.uploadAnnotation(ctx, project, result.ImageID, fileName, annotation)
	if err != nil {
		return domain.UploadResult{}, err
	}
	annotated.ImageID = result.ImageID
	return annotated, nil
}

func (c *Client) uploadImage(ctx context.Context, project string, data []byte, fileName string) (domain.UploadResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", mimetype.Detect(data).String())
	part, err := form.CreatePart(header)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("while building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return domain.UploadResult{}, fmt.Errorf("while building upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return domain.UploadResult{}, fmt.Errorf("while building upload form: %w", err)
	}

	query := url.Values{}
	query.Set("name", fileName)
	query.Set("split", c.split)
	status, resp, err := c.do(ctx, http.MethodPost, "/dataset/"+url.PathEscape(project)+"/upload", query, form.FormDataContentType(), &body)
	if err != nil {
		return domain.UploadResult{}, err
	}
	return decodeResult(status, resp)
}

// annotationRequest is the JSON body of the annotate endpoint
type annotationRequest struct {
	AnnotationFile string            `json:"annotationFile"`
	LabelMap       map[string]string `json:"labelmap,omitempty"`
}

func (c *Client) uploadAnnotation(ctx context.Context, project, imageID, fileName string, annotation domain.ConvertedAnnotation) (domain.UploadResult, error) {
	if imageID == "" {
		return domain.UploadResult{Error: "upload response did not carry an image id"}, nil
	}
	req := annotationRequest{AnnotationFile: annotation.Payload()}
	if len(annotation.LabelMap) > 0 {
		req.LabelMap = make(map[string]string, len(annotation.LabelMap))
		for idx, name := range annotation.LabelMap {
			req.LabelMap[strconv.Itoa(idx)] = name
		}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("while encoding annotation: %w", err)
	}

	query := url.Values{}
	query.Set("name", annotationName(fileName))
	status, resp, err := c.do(ctx, http.MethodPost, "/dataset/"+url.PathEscape(project)+"/annotate/"+url.PathEscape(imageID), query, "application/json", bytes.NewReader(payload))
	if err != nil {
		return domain.UploadResult{}, err
	}
	return decodeResult(status, resp)
}

func decodeResult(status int, body []byte) (domain.UploadResult, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if status >= 400 {
			return domain.UploadResult{Error: fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))}, nil
		}
		return domain.UploadResult{}, fmt.Errorf("while decoding roboflow response: %w", err)
	}
	if status >= 400 {
		msg := resp.failure()
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", status)
		}
		return domain.UploadResult{Error: msg, ImageID: resp.ID}, nil
	}
	if resp.Success || resp.Duplicate {
		return domain.UploadResult{Success: true, ImageID: resp.ID}, nil
	}
	return domain.UploadResult{Error: resp.failure(), ImageID: resp.ID}, nil
}

// projectSlug accepts both "project" and "workspace/project"
func projectSlug(projectID string) string {
	projectID = strings.Trim(projectID, "/")
	if i := strings.LastIndex(projectID, "/"); i >= 0 {
		return projectID[i+1:]
	}
	return projectID
}

func annotationName(fileName string) string {
	return strings.TrimSuffix(fileName, path.Ext(fileName)) + ".txt"
}

var _ domain.Uploader = (*Client)(nil)
