package k8s

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"
)

// ResourceRef is a kind/name reference in kubectl notation, e.g. "deployment/chrome-node".
type ResourceRef struct {
	Kind string
	Name string
}

func (r ResourceRef) String() string {
	return r.Kind + "/" + r.Name
}

// ParseResourceRef accepts the kind spellings kubectl accepts for the kinds gridpilot manages.
func ParseResourceRef(s string) (ResourceRef, error) {
	kind, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || kind == "" || name == "" {
		return ResourceRef{}, fmt.Errorf("invalid resource reference %q, expected kind/name", s)
	}

	switch strings.ToLower(kind) {
	case "service", "services", "svc":
		kind = "service"
	case "deployment", "deployments", "deploy":
		kind = "deployment"
	case "job", "jobs":
		kind = "job"
	case "pod", "pods", "po":
		kind = "pod"
	case "configmap", "configmaps", "cm":
		kind = "configmap"
	default:
		return ResourceRef{}, fmt.Errorf("unsupported resource kind %q", kind)
	}
	return ResourceRef{Kind: kind, Name: name}, nil
}

// DeleteResource deletes ref in background propagation mode. A missing resource is not an
// error.
func DeleteResource(ctx context.Context, client kubernetes.Interface, namespace string, ref ResourceRef) error {
	opts := metav1.DeleteOptions{
		PropagationPolicy: ptr.To(metav1.DeletePropagationBackground),
	}

	var err error
	switch ref.Kind {
	case "service":
		err = client.CoreV1().Services(namespace).Delete(ctx, ref.Name, opts)
	case "deployment":
		err = client.AppsV1().Deployments(namespace).Delete(ctx, ref.Name, opts)
	case "job":
		err = client.BatchV1().Jobs(namespace).Delete(ctx, ref.Name, opts)
	case "pod":
		err = client.CoreV1().Pods(namespace).Delete(ctx, ref.Name, opts)
	case "configmap":
		err = client.CoreV1().ConfigMaps(namespace).Delete(ctx, ref.Name, opts)
	default:
		return fmt.Errorf("unsupported resource kind %q", ref.Kind)
	}

	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}
