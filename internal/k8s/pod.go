package k8s

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
)

// CountPodsInPhase counts pods matching selector that are in phase. The field selector is
// sent to the API server but the phase is checked again locally, since not every client
// honours field selectors.
func CountPodsInPhase(ctx context.Context, client kubernetes.Interface, namespace, selector string, phase corev1.PodPhase) (int, error) {
	pods, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
		FieldSelector: fields.OneTermEqualSelector("status.phase", string(phase)).String(),
	})
	if err != nil {
		return 0, err
	}

	count := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == phase && pod.DeletionTimestamp == nil {
			count++
		}
	}
	return count, nil
}
