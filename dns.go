package uvcc

import (
	"context"
	"net"
	"strconv"

	"github.com/uvcc-go/uvcc/internal/netutil"
)

// AddrInfo is the resolved result of a GetAddrInfo call: every address the
// resolver returned for the requested host, plus the canonical name when
// the resolver supplied one.
type AddrInfo struct {
	Canonical string
	Addrs     []netutil.SockAddr
}

// GetAddrInfoCallback receives the resolution outcome.
type GetAddrInfoCallback func(r *Request, status ErrorKind, info *AddrInfo)

// GetAddrInfo resolves host:port on the worker pool. Per §8 scenario 5, an
// empty cb makes this a synchronous call: it blocks until resolution
// completes and the returned Request's Status()/payload already reflect
// the outcome before GetAddrInfo returns.
func GetAddrInfo(loop *Loop, host string, port uint16, cb GetAddrInfoCallback) *Request {
	r := newRequest(loop, KindGetAddrInfo, nil, nil)
	resolve := func() (any, error) {
		ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
		if err != nil {
			return nil, err
		}
		info := &AddrInfo{Canonical: host}
		for _, ip := range ips {
			if v4 := ip.IP.To4(); v4 != nil {
				info.Addrs = append(info.Addrs, netutil.NewSockAddrIn4(v4, port))
			} else {
				info.Addrs = append(info.Addrs, netutil.NewSockAddrIn6(ip.IP, port, 0))
			}
		}
		return info, nil
	}

	if cb == nil {
		value, err := resolve()
		status := KindOk
		if err != nil {
			status = KindEngineError
		}
		r.setPayload(value)
		r.complete(status, value)
		return r
	}

	r.completion.Set(func(req *Request, status ErrorKind, result any) {
		info, _ := result.(*AddrInfo)
		req.setPayload(info)
		cb(req, status, info)
	})
	loop.reactor.QueueWork(r.id, func() (any, error) {
		return resolve()
	})
	return r
}

// GetNameInfoCallback receives the reverse-lookup outcome.
type GetNameInfoCallback func(r *Request, status ErrorKind, host, service string)

// GetNameInfo reverse-resolves sa on the worker pool, synchronously if cb
// is nil (same contract as GetAddrInfo).
func GetNameInfo(loop *Loop, sa netutil.SockAddr, cb GetNameInfoCallback) *Request {
	r := newRequest(loop, KindGetNameInfo, nil, nil)
	ip, port := sa.IP()
	resolve := func() (string, string) {
		names, err := net.DefaultResolver.LookupAddr(context.Background(), ip.String())
		host := ip.String()
		if err == nil && len(names) > 0 {
			host = names[0]
		}
		return host, strconv.Itoa(int(port))
	}

	if cb == nil {
		host, service := resolve()
		pair := [2]string{host, service}
		r.setPayload(pair)
		r.complete(KindOk, pair)
		return r
	}

	r.completion.Set(func(req *Request, status ErrorKind, result any) {
		pair, _ := result.([2]string)
		req.setPayload(pair)
		cb(req, status, pair[0], pair[1])
	})
	loop.reactor.QueueWork(r.id, func() (any, error) {
		host, service := resolve()
		return [2]string{host, service}, nil
	})
	return r
}
