package k8s

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	watchapi "k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"
	"k8s.io/client-go/tools/watch"
)

// JobNameLabel is set by the job controller on every pod it creates.
const JobNameLabel = "batch.kubernetes.io/job-name"

// legacyJobNameLabel is still set alongside JobNameLabel and is the only one on clusters
// older than 1.27.
const legacyJobNameLabel = "job-name"

type JobHelper struct {
	client kubernetes.Interface
	job    *batchv1.Job
}

func NewJobHelper(client kubernetes.Interface, job *batchv1.Job) *JobHelper {
	return &JobHelper{
		client: client,
		job:    job,
	}
}

func (h *JobHelper) WaitForCondition(ctx context.Context, fn func(*batchv1.Job) (bool, error), timeout time.Duration) error {
	fs := fields.SelectorFromSet(map[string]string{
		"metadata.namespace": h.job.Namespace,
		"metadata.name":      h.job.Name,
	})

	lw := &cache.ListWatch{
		ListFunc: func(options metav1.ListOptions) (runtime.Object, error) {
			options.FieldSelector = fs.String()
			return h.client.BatchV1().Jobs(h.job.Namespace).List(ctx, options)
		},
		WatchFunc: func(options metav1.ListOptions) (watchapi.Interface, error) {
			options.FieldSelector = fs.String()
			return h.client.BatchV1().Jobs(h.job.Namespace).Watch(ctx, options)
		},
	}

	ctx, cfn := context.WithTimeout(ctx, timeout)
	defer cfn()

	last, err := watch.UntilWithSync(ctx, lw, &batchv1.Job{}, nil, func(event watchapi.Event) (bool, error) {
		switch event.Type {
		case watchapi.Error:
			return false, fmt.Errorf("error watching job")

		case watchapi.Deleted:
			return false, fmt.Errorf("job %s/%s was deleted", h.job.Namespace, h.job.Name)

		default:
			job, ok := event.Object.(*batchv1.Job)
			if !ok || job.Name != h.job.Name {
				return false, nil
			}
			h.job = job
			return fn(h.job)
		}
	})
	if err != nil {
		return err
	}
	if last == nil {
		return fmt.Errorf("no events received for job %s/%s", h.job.Namespace, h.job.Name)
	}
	return nil
}

// WaitForComplete waits for the Complete condition. A Failed condition ends the wait early.
func (h *JobHelper) WaitForComplete(ctx context.Context, timeout time.Duration) error {
	return h.WaitForCondition(ctx, func(job *batchv1.Job) (bool, error) {
		if HasJobCondition(job, batchv1.JobFailed) {
			return false, fmt.Errorf("job %s/%s failed", job.Namespace, job.Name)
		}
		return HasJobCondition(job, batchv1.JobComplete), nil
	}, timeout)
}

// Pods returns the pods created for the job, newest first.
func (h *JobHelper) Pods(ctx context.Context) ([]corev1.Pod, error) {
	for _, key := range []string{JobNameLabel, legacyJobNameLabel} {
		pods, err := h.client.CoreV1().Pods(h.job.Namespace).List(ctx, metav1.ListOptions{
			LabelSelector: labels.SelectorFromSet(map[string]string{key: h.job.Name}).String(),
		})
		if err != nil {
			return nil, err
		}
		if len(pods.Items) > 0 {
			items := pods.Items
			sort.SliceStable(items, func(i, j int) bool {
				return items[j].CreationTimestamp.Before(&items[i].CreationTimestamp)
			})
			return items, nil
		}
	}
	return nil, nil
}

// Logs returns the logs of the newest pod of the job.
func (h *JobHelper) Logs(ctx context.Context) (string, error) {
	pods, err := h.Pods(ctx)
	if err != nil {
		return "", err
	}
	if len(pods) == 0 {
		return "", fmt.Errorf("no pods found for job %s/%s", h.job.Namespace, h.job.Name)
	}
	stream, err := h.client.CoreV1().Pods(h.job.Namespace).GetLogs(pods[0].Name, &corev1.PodLogOptions{}).Stream(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	raw, err := io.ReadAll(stream)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func HasJobCondition(job *batchv1.Job, conditionType batchv1.JobConditionType) bool {
	for _, c := range job.Status.Conditions {
		if c.Type == conditionType && c.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
