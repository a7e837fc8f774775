package cluster

import (
	"context"
	"time"

	"emperror.dev/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/voluzi/gridpilot/internal/k8s"
)

// API talks to the Kubernetes API server directly.
type API struct {
	client    kubernetes.Interface
	namespace string
}

var _ Cluster = (*API)(nil)

func NewAPI(client kubernetes.Interface, namespace string) *API {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &API{client: client, namespace: namespace}
}

// NewAPIFromKubeconfig builds an API backend using the standard kubeconfig loading rules. An
// empty kubeconfig falls back to $KUBECONFIG and ~/.kube/config, and an empty namespace to
// the namespace of the current context.
func NewAPIFromKubeconfig(kubeconfig, namespace string) (*API, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfig

	overrides := &clientcmd.ConfigOverrides{}
	if namespace != "" {
		overrides.Context.Namespace = namespace
	}

	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)
	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, errors.WrapIf(err, "loading kubeconfig")
	}

	ns, _, err := clientConfig.Namespace()
	if err != nil {
		return nil, errors.WrapIf(err, "resolving namespace")
	}

	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, errors.WrapIf(err, "creating kubernetes client")
	}
	return NewAPI(client, ns), nil
}

func (a *API) Delete(ctx context.Context, resource string) error {
	ref, err := k8s.ParseResourceRef(resource)
	if err != nil {
		return err
	}
	return errors.WrapIfWithDetails(
		k8s.DeleteResource(ctx, a.client, a.namespace, ref),
		"deleting resource", "resource", ref.String(),
	)
}

func (a *API) CountRunning(ctx context.Context, selector string) (int, error) {
	count, err := k8s.CountPodsInPhase(ctx, a.client, a.namespace, selector, corev1.PodRunning)
	if err != nil {
		return 0, errors.WrapIf(err, "counting running pods")
	}
	return count, nil
}

func (a *API) FindJobs(ctx context.Context, selector string) ([]string, error) {
	jobs, err := a.client.BatchV1().Jobs(a.namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "listing jobs", "selector", selector)
	}
	names := make([]string, 0, len(jobs.Items))
	for _, job := range jobs.Items {
		names = append(names, job.Name)
	}
	return names, nil
}

func (a *API) jobHelper(ctx context.Context, name string) (*k8s.JobHelper, error) {
	job, err := a.client.BatchV1().Jobs(a.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "getting job", "job", name)
	}
	return k8s.NewJobHelper(a.client, job), nil
}

func (a *API) WaitJobComplete(ctx context.Context, name string, timeout time.Duration) error {
	helper, err := a.jobHelper(ctx, name)
	if err != nil {
		return err
	}
	return errors.WrapIfWithDetails(helper.WaitForComplete(ctx, timeout), "waiting for job", "job", name)
}

func (a *API) JobLogs(ctx context.Context, name string) (string, error) {
	helper, err := a.jobHelper(ctx, name)
	if err != nil {
		return "", err
	}
	logs, err := helper.Logs(ctx)
	if err != nil {
		return "", errors.WrapIfWithDetails(err, "fetching job logs", "job", name)
	}
	return logs, nil
}
