package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultBaseURLConstant                   = "https://gitlab.com/api/v4"
	projectsPathSegmentConstant              = "projects"
	mergeRequestsPathSegmentConstant         = "merge_requests"
	privateTokenHeaderNameConstant           = "PRIVATE-TOKEN"
	contentTypeHeaderNameConstant            = "Content-Type"
	jsonContentTypeValueConstant             = "application/json"
	labelsSeparatorConstant                  = ","
	pathSeparatorConstant                    = "/"
	validateProjectOperationNameConstant     = "validate project"
	createMergeRequestOperationNameConstant  = "create merge request"
	requestCreationErrorTemplateConstant     = "unable to create %s request for %s: %w"
	requestExecutionErrorTemplateConstant    = "request execution failed: %w"
	baseURLParseErrorTemplateConstant        = "unable to parse base URL %q: %w"
	payloadEncodingErrorTemplateConstant     = "unable to encode merge request payload: %w"
	responseDecodeErrorTemplateConstant      = "unable to decode merge request response: %w"
	remoteFailureWithBodyTemplateConstant    = "%s failed with status %d: %s"
	remoteFailureWithoutBodyTemplateConstant = "%s failed with status %d"
	projectMissingErrorMessageConstant       = "project identifier must be provided"
	sourceBranchMissingErrorMessageConstant  = "source branch must be provided"
	targetBranchMissingErrorMessageConstant  = "target branch must be provided"
	titleMissingErrorMessageConstant         = "merge request title must be provided"
	projectValidatedMessageConstant          = "Validated GitLab project"
	mergeRequestCreatedMessageConstant       = "Created GitLab merge request"
	projectLogFieldNameConstant              = "project"
	projectFoundLogFieldNameConstant         = "found"
	sourceBranchLogFieldNameConstant         = "source_branch"
	targetBranchLogFieldNameConstant         = "target_branch"
	mergeRequestURLLogFieldNameConstant      = "merge_request_url"
	responseBodyExcerptLimitConstant         = 512
)

// HTTPClient abstracts the Do method of http.Client for easier testing.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Configuration specifies connection details for the GitLab REST API.
type Configuration struct {
	BaseURL string
	Token   string
}

// MergeRequestOptions describes the merge request to open.
type MergeRequestOptions struct {
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
	Labels       []string
}

// MergeRequest identifies a merge request created on the remote service.
type MergeRequest struct {
	IID    int    `json:"iid"`
	WebURL string `json:"web_url"`
}

// RemoteServiceError reports an unexpected response from the GitLab REST API.
type RemoteServiceError struct {
	Operation   string
	StatusCode  int
	BodyExcerpt string
}

// Error describes the failed operation together with the response excerpt.
func (serviceError RemoteServiceError) Error() string {
	if len(serviceError.BodyExcerpt) == 0 {
		return fmt.Sprintf(remoteFailureWithoutBodyTemplateConstant, serviceError.Operation, serviceError.StatusCode)
	}
	return fmt.Sprintf(remoteFailureWithBodyTemplateConstant, serviceError.Operation, serviceError.StatusCode, serviceError.BodyExcerpt)
}

type mergeRequestPayload struct {
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Labels       string `json:"labels,omitempty"`
}

// Client interacts with the GitLab REST API.
type Client struct {
	logger     *zap.Logger
	httpClient HTTPClient
	baseURL    string
	token      string
}

// NewClient constructs a client with sane defaults.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration Configuration) (*Client, error) {
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	resolvedClient := httpClient
	if resolvedClient == nil {
		resolvedClient = http.DefaultClient
	}

	resolvedBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(resolvedBaseURL) == 0 {
		resolvedBaseURL = defaultBaseURLConstant
	}

	return &Client{
		logger:     resolvedLogger,
		httpClient: resolvedClient,
		baseURL:    resolvedBaseURL,
		token:      strings.TrimSpace(configuration.Token),
	}, nil
}

// ValidateProject reports whether the project identifier resolves on the remote service.
// A 404 response means the project does not exist and is not treated as an error.
func (client *Client) ValidateProject(executionContext context.Context, projectIdentifier string) (bool, error) {
	trimmedIdentifier := strings.TrimSpace(projectIdentifier)
	if len(trimmedIdentifier) == 0 {
		return false, errors.New(projectMissingErrorMessageConstant)
	}

	projectURL, buildError := client.buildProjectURL(trimmedIdentifier)
	if buildError != nil {
		return false, buildError
	}

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, projectURL, nil)
	if requestError != nil {
		return false, fmt.Errorf(requestCreationErrorTemplateConstant, http.MethodGet, projectURL, requestError)
	}
	client.applyAuthentication(request)

	response, executionError := client.httpClient.Do(request)
	if executionError != nil {
		return false, fmt.Errorf(requestExecutionErrorTemplateConstant, executionError)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return false, nil
	case isSuccessStatusCode(response.StatusCode):
		client.logger.Debug(projectValidatedMessageConstant,
			zap.String(projectLogFieldNameConstant, trimmedIdentifier),
			zap.Bool(projectFoundLogFieldNameConstant, true),
		)
		return true, nil
	default:
		return false, newRemoteServiceError(validateProjectOperationNameConstant, response)
	}
}

// CreateMergeRequest opens a merge request between the configured branches.
func (client *Client) CreateMergeRequest(executionContext context.Context, projectIdentifier string, options MergeRequestOptions) (MergeRequest, error) {
	trimmedIdentifier := strings.TrimSpace(projectIdentifier)
	if len(trimmedIdentifier) == 0 {
		return MergeRequest{}, errors.New(projectMissingErrorMessageConstant)
	}
	if len(strings.TrimSpace(options.SourceBranch)) == 0 {
		return MergeRequest{}, errors.New(sourceBranchMissingErrorMessageConstant)
	}
	if len(strings.TrimSpace(options.TargetBranch)) == 0 {
		return MergeRequest{}, errors.New(targetBranchMissingErrorMessageConstant)
	}
	if len(strings.TrimSpace(options.Title)) == 0 {
		return MergeRequest{}, errors.New(titleMissingErrorMessageConstant)
	}

	payload := mergeRequestPayload{
		SourceBranch: options.SourceBranch,
		TargetBranch: options.TargetBranch,
		Title:        options.Title,
		Description:  options.Description,
		Labels:       strings.Join(options.Labels, labelsSeparatorConstant),
	}

	encodedPayload, encodingError := json.Marshal(payload)
	if encodingError != nil {
		return MergeRequest{}, fmt.Errorf(payloadEncodingErrorTemplateConstant, encodingError)
	}

	mergeRequestsURL, buildError := client.buildMergeRequestsURL(trimmedIdentifier)
	if buildError != nil {
		return MergeRequest{}, buildError
	}

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodPost, mergeRequestsURL, bytes.NewReader(encodedPayload))
	if requestError != nil {
		return MergeRequest{}, fmt.Errorf(requestCreationErrorTemplateConstant, http.MethodPost, mergeRequestsURL, requestError)
	}
	request.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeValueConstant)
	client.applyAuthentication(request)

	response, executionError := client.httpClient.Do(request)
	if executionError != nil {
		return MergeRequest{}, fmt.Errorf(requestExecutionErrorTemplateConstant, executionError)
	}
	defer response.Body.Close()

	if !isSuccessStatusCode(response.StatusCode) {
		return MergeRequest{}, newRemoteServiceError(createMergeRequestOperationNameConstant, response)
	}

	var createdMergeRequest MergeRequest
	if decodeError := json.NewDecoder(response.Body).Decode(&createdMergeRequest); decodeError != nil {
		return MergeRequest{}, fmt.Errorf(responseDecodeErrorTemplateConstant, decodeError)
	}

	client.logger.Info(mergeRequestCreatedMessageConstant,
		zap.String(projectLogFieldNameConstant, trimmedIdentifier),
		zap.String(sourceBranchLogFieldNameConstant, options.SourceBranch),
		zap.String(targetBranchLogFieldNameConstant, options.TargetBranch),
		zap.String(mergeRequestURLLogFieldNameConstant, createdMergeRequest.WebURL),
	)

	return createdMergeRequest, nil
}

func (client *Client) applyAuthentication(request *http.Request) {
	if len(client.token) > 0 {
		request.Header.Set(privateTokenHeaderNameConstant, client.token)
	}
}

// buildProjectURL keeps the escaped project identifier intact, so the URL is
// assembled from strings instead of url.URL path fields.
func (client *Client) buildProjectURL(projectIdentifier string) (string, error) {
	parsedBaseURL, parseError := url.Parse(client.baseURL)
	if parseError != nil {
		return "", fmt.Errorf(baseURLParseErrorTemplateConstant, client.baseURL, parseError)
	}

	pathSegments := []string{
		strings.TrimSuffix(parsedBaseURL.String(), pathSeparatorConstant),
		projectsPathSegmentConstant,
		url.PathEscape(projectIdentifier),
	}

	return strings.Join(pathSegments, pathSeparatorConstant), nil
}

func (client *Client) buildMergeRequestsURL(projectIdentifier string) (string, error) {
	projectURL, buildError := client.buildProjectURL(projectIdentifier)
	if buildError != nil {
		return "", buildError
	}

	return projectURL + pathSeparatorConstant + mergeRequestsPathSegmentConstant, nil
}

func isSuccessStatusCode(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

func newRemoteServiceError(operationName string, response *http.Response) RemoteServiceError {
	responseBody, _ := io.ReadAll(io.LimitReader(response.Body, responseBodyExcerptLimitConstant))
	return RemoteServiceError{
		Operation:   operationName,
		StatusCode:  response.StatusCode,
		BodyExcerpt: strings.TrimSpace(string(responseBody)),
	}
}
