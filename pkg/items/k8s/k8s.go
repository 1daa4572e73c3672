// Package k8s provides a bar item summarising Kubernetes clusters: node
// readiness, pod phases and degraded deployments for one or more kubeconfig
// contexts. It queries the API with client-go.
package k8s

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

const defaultInterval = 30 * time.Second

// Config configures the kube item.
type Config struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// Kubeconfig is the path to a kubeconfig file. If empty, the default
	// loading rules apply (KUBECONFIG env, ~/.kube/config, in-cluster).
	Kubeconfig string `toml:"kubeconfig" yaml:"kubeconfig"`

	// Contexts lists kubeconfig contexts to show. If empty, only the
	// current context is used.
	Contexts []string `toml:"contexts" yaml:"contexts"`

	// Namespace restricts pod and deployment counts. Empty means all.
	Namespace string `toml:"namespace" yaml:"namespace"`

	// Timeout bounds the API calls of one refresh.
	Timeout time.Duration `toml:"-" yaml:"-"`
}

// ClusterInfo is the status of one context.
type ClusterInfo struct {
	Context     string
	Connected   bool
	Error       string
	ReadyNodes  int
	TotalNodes  int
	RunningPods int
	PendingPods int
	FailedPods  int
	Degraded    []string
}

// K8sClient abstracts Kubernetes API calls for testability.
type K8sClient interface {
	ListNodes(ctx context.Context) ([]corev1.Node, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error)
}

// realClient wraps a kubernetes.Clientset to implement K8sClient.
type realClient struct {
	cs *kubernetes.Clientset
}

func (r *realClient) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := r.cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list, err := r.cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	list, err := r.cs.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// clientFactory creates a K8sClient for a kubeconfig context and returns
// the resolved context name. An empty context means the current one.
type clientFactory func(kubeconfig, context string) (K8sClient, string, error)

// defaultClientFactory builds a real K8sClient from a kubeconfig path and context.
func defaultClientFactory(kubeconfig, ctxName string) (K8sClient, string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if ctxName != "" {
		overrides.CurrentContext = ctxName
	}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	name := ctxName
	if name == "" {
		raw, err := loader.RawConfig()
		if err != nil {
			return nil, "", fmt.Errorf("load kubeconfig: %w", err)
		}
		name = raw.CurrentContext
	}

	cfg, err := loader.ClientConfig()
	if err != nil {
		return nil, name, fmt.Errorf("build client config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, name, fmt.Errorf("create clientset: %w", err)
	}
	return &realClient{cs: cs}, name, nil
}

// Item is the kube bar item. With several contexts, clicking pages
// through them.
type Item struct {
	cfg     Config
	factory clientFactory
	clients map[string]K8sClient
	names   map[string]string
}

// New returns a kube item.
func New(cfg Config) *Item {
	return newWithFactory(cfg, defaultClientFactory)
}

// newWithFactory creates an Item with a custom client factory (for tests).
func newWithFactory(cfg Config, factory clientFactory) *Item {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.Contexts) == 0 {
		cfg.Contexts = []string{""}
	}
	return &Item{
		cfg:     cfg,
		factory: factory,
		clients: make(map[string]K8sClient),
		names:   make(map[string]string),
	}
}

// Start implements engine.BarItem.
func (it *Item) Start(ctx context.Context, bc *engine.Context) error {
	idx := 0
	for {
		ctxName := it.cfg.Contexts[idx%len(it.cfg.Contexts)]

		callCtx, cancel := context.WithTimeout(ctx, it.cfg.Timeout)
		info := it.collect(callCtx, ctxName)
		cancel()
		if ctx.Err() != nil {
			return nil
		}
		if info.Error != "" {
			bc.Logger().Debug("kube status failed", "context", info.Context, "error", info.Error)
		}

		if err := bc.Update(k8sFormat(bc.Theme(), info, idx, len(it.cfg.Contexts))); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, it.cfg.Interval)
		if err != nil {
			return nil
		}
		if ok {
			bc.Paginate(ev, len(it.cfg.Contexts), &idx)
		}
	}
}

// collect gathers the status of one context. Failures are reported in
// ClusterInfo.Error, not as a Go error.
func (it *Item) collect(ctx context.Context, ctxName string) ClusterInfo {
	client, ok := it.clients[ctxName]
	if !ok {
		c, name, err := it.factory(it.cfg.Kubeconfig, ctxName)
		if err != nil {
			label := name
			if label == "" {
				label = ctxName
			}
			return ClusterInfo{Context: label, Error: err.Error()}
		}
		client = c
		it.clients[ctxName] = c
		it.names[ctxName] = name
	}

	info := ClusterInfo{Context: it.names[ctxName]}

	nodes, err := client.ListNodes(ctx)
	if err != nil {
		info.Error = fmt.Sprintf("list nodes: %v", err)
		return info
	}
	info.Connected = true
	info.TotalNodes = len(nodes)
	for i := range nodes {
		if isNodeReady(&nodes[i]) {
			info.ReadyNodes++
		}
	}

	if pods, err := client.ListPods(ctx, it.cfg.Namespace); err == nil {
		info.RunningPods, info.PendingPods, info.FailedPods = countPodPhases(pods)
	} else {
		info.Error = fmt.Sprintf("list pods: %v", err)
	}

	if deps, err := client.ListDeployments(ctx, it.cfg.Namespace); err == nil {
		info.Degraded = degradedDeployments(deps)
	} else if info.Error == "" {
		info.Error = fmt.Sprintf("list deployments: %v", err)
	}
	return info
}

func k8sFormat(th *theme.Theme, info ClusterInfo, idx, total int) i3.Item {
	label := info.Context
	if label == "" {
		label = "k8s"
	}
	item := i3.NewItem("").WithName("kube").WithMarkup(i3.MarkupPango).WithShortText(label)

	if !info.Connected {
		return item.WithFullText(label + " unreachable" + th.Fraction(idx+1, total)).WithColor(th.Red)
	}

	text := fmt.Sprintf("%s %d/%d nodes %d pods", label, info.ReadyNodes, info.TotalNodes, info.RunningPods)
	if info.FailedPods > 0 {
		text += fmt.Sprintf(` <span foreground="%s">%d failed</span>`, th.Red, info.FailedPods)
	}
	if n := len(info.Degraded); n > 0 {
		text += fmt.Sprintf(` <span foreground="%s">%d degraded</span>`, th.Orange, n)
	}
	text += th.Fraction(idx+1, total)

	color := th.Green
	switch {
	case info.ReadyNodes == 0:
		color = th.Red
	case info.ReadyNodes < info.TotalNodes:
		color = th.Yellow
	}
	return item.WithFullText(text).WithColor(color)
}

// isNodeReady checks whether a node has a Ready condition set to True.
func isNodeReady(node *corev1.Node) bool {
	if node == nil {
		return false
	}
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// countPodPhases returns running, pending and failed pod counts.
func countPodPhases(pods []corev1.Pod) (running, pending, failed int) {
	for i := range pods {
		switch pods[i].Status.Phase {
		case corev1.PodRunning:
			running++
		case corev1.PodPending:
			pending++
		case corev1.PodFailed:
			failed++
		}
	}
	return
}

// degradedDeployments returns "namespace/name" of every deployment with
// fewer ready replicas than desired.
func degradedDeployments(deps []appsv1.Deployment) []string {
	var out []string
	for i := range deps {
		want := int32(1)
		if deps[i].Spec.Replicas != nil {
			want = *deps[i].Spec.Replicas
		}
		if deps[i].Status.ReadyReplicas < want {
			out = append(out, deps[i].Namespace+"/"+deps[i].Name)
		}
	}
	return out
}
